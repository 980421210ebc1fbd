// Package compose derives container names from a Docker Compose file, so CI
// scripts can wait on a whole project without listing containers by hand.
package compose

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	compose "github.com/compose-spec/compose-go/v2/types"
)

const composeSpecFilename = "compose.yaml"

// ServiceContainers parses a Compose YAML document and returns the container
// names its services run under: the explicit container_name when set,
// otherwise the conventional "<project>-<service>-1".
//
// projectName overrides the project name from the file; it is required when
// the file declares none and any service lacks container_name.
func ServiceContainers(ctx context.Context, data []byte, projectName string) ([]string, error) {
	configDetails := compose.ConfigDetails{
		ConfigFiles: []compose.ConfigFile{
			{Filename: composeSpecFilename, Content: data},
		},
	}

	project, err := loader.LoadWithContext(ctx, configDetails, func(o *loader.Options) {
		if trimmed := strings.TrimSpace(projectName); trimmed != "" {
			o.SetProjectName(trimmed, true)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("parse compose spec: %w", err)
	}
	if len(project.Services) == 0 {
		return nil, fmt.Errorf("compose spec has no services")
	}

	names := make([]string, 0, len(project.Services))
	for svcName, svc := range project.Services {
		if svc.ContainerName != "" {
			names = append(names, svc.ContainerName)
			continue
		}
		if project.Name == "" {
			return nil, fmt.Errorf("service %q has no container_name and no project name is set", svcName)
		}
		names = append(names, fmt.Sprintf("%s-%s-1", project.Name, svcName))
	}
	sort.Strings(names)
	return names, nil
}
