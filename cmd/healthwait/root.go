package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"healthwait"
	"healthwait/cmd/healthwait/ui"
	"healthwait/config"
	"healthwait/internal/compose"
	"healthwait/internal/inspect"
	"healthwait/internal/logging"
	"healthwait/internal/probe"
	"healthwait/internal/scheduler"
	"healthwait/internal/support/buildinfo"

	"github.com/spf13/cobra"
)

type options struct {
	quiet       bool
	verbose     bool
	timeout     int
	docker      string
	composeFile string
	project     string
}

func newRootCmd() (*cobra.Command, *options) {
	var opts options

	cmd := &cobra.Command{
		Use:   "healthwait [container...]",
		Short: "Wait for Docker containers to pass their health checks",
		Long: `Polls the configured health check of each given container until every
container reports healthy, then exits 0. Containers without a health check
count as ready immediately. Unhealthy containers are re-checked without
delay until they recover or the overall timeout elapses.

Container names or IDs are taken from the arguments; when stdin is not a
terminal, additional identifiers are read from it, one per line.`,
		Version:       buildinfo.Version,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return waitForContainers(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress output")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Verbose output (per-line health check output)")
	cmd.Flags().IntVarP(&opts.timeout, "timeout", "t", 0, "Seconds to wait before failing; waits indefinitely when 0")
	cmd.Flags().StringVar(&opts.docker, "docker", "", `Container runtime binary (default "docker")`)
	cmd.Flags().StringVarP(&opts.composeFile, "compose-file", "f", "", "Also wait on the service containers of this Compose file")
	cmd.Flags().StringVar(&opts.project, "project", "", "Compose project name override")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})
	return cmd, &opts
}

func waitForContainers(cmd *cobra.Command, args []string, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.timeout < 0 {
		return fmt.Errorf("%w: negative timeout %d", errUsage, opts.timeout)
	}
	if opts.quiet && opts.verbose {
		return fmt.Errorf("%w: --quiet and --verbose are mutually exclusive", errUsage)
	}

	docker := firstNonEmpty(opts.docker, cfg.Docker, "docker")
	timeout := opts.timeout
	if !cmd.Flags().Changed("timeout") && cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}

	log, err := buildLogger(cmd.ErrOrStderr(), opts, cfg)
	if err != nil {
		return err
	}

	var stdin io.Reader
	if !ui.IsTerminal(os.Stdin) {
		stdin = cmd.InOrStdin()
	}
	var composeNames []string
	if opts.composeFile != "" {
		data, err := os.ReadFile(opts.composeFile)
		if err != nil {
			return fmt.Errorf("read compose file: %w", err)
		}
		composeNames, err = compose.ServiceContainers(cmd.Context(), data, opts.project)
		if err != nil {
			return err
		}
	}
	ids, err := gatherIDs(args, stdin, composeNames)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: no containers specified", errUsage)
	}

	inspector := inspect.New(inspect.WithBinary(docker), inspect.WithLogger(log))
	records, err := inspector.Inspect(cmd.Context(), ids)
	if err != nil {
		return err
	}

	sched := &scheduler.Scheduler{
		Prober: probe.New(probe.WithBinary(docker), probe.WithLogger(log)),
		Log:    log,
	}
	if !opts.quiet {
		out := cmd.OutOrStdout()
		sched.OnResult = func(res healthwait.ProbeResult) {
			switch res.Outcome {
			case healthwait.Healthy:
				fmt.Fprintln(out, ui.SuccessMsg("%s is healthy", res.Record.Name), ui.Muted(res.Record.ShortID()))
			case healthwait.NoHealthCheck:
				fmt.Fprintln(out, ui.WarnMsg("%s has no health check", res.Record.Name))
			}
		}
	}

	if err := sched.Run(cmd.Context(), records, time.Duration(timeout)*time.Second); err != nil {
		return err
	}
	if !opts.quiet {
		fmt.Fprintln(cmd.OutOrStdout(), ui.SuccessMsg("all %d containers ready", len(records)))
	}
	return nil
}

// gatherIDs merges positional arguments, one-per-line stdin input, and
// compose-derived container names, deduplicating while preserving first
// appearance. stdin may be nil (interactive terminal).
func gatherIDs(args []string, stdin io.Reader, composeNames []string) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, arg := range args {
		add(arg)
	}
	if stdin != nil {
		sc := bufio.NewScanner(stdin)
		for sc.Scan() {
			add(sc.Text())
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read container ids from stdin: %w", err)
		}
	}
	for _, name := range composeNames {
		add(name)
	}
	return ids, nil
}

func buildLogger(w io.Writer, opts options, cfg *config.Config) (*slog.Logger, error) {
	if opts.quiet {
		return logging.Discard(), nil
	}
	level := cfg.LogLevel
	if opts.verbose {
		level = logging.LevelDebug
	}
	log, err := logging.New(w, level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	return log, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
