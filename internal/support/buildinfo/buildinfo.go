// Package buildinfo carries version information stamped at build time.
package buildinfo

// Version is overridden at release time via
// -ldflags "-X healthwait/internal/support/buildinfo.Version=...".
var Version = "0.3.0"
