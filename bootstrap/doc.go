// Package bootstrap runs an npuflow binary: typed configuration, the
// component registry, lifecycle hooks and graceful shutdown.
//
// A one-shot batch uses RunTask; the HTTP harness uses Run, which blocks
// until SIGINT or SIGTERM.
package bootstrap
