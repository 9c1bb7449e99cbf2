// Package logger provides structured logging for npuflow using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers. Fields are passed as maps so call sites stay
// independent of the zerolog event API:
//
//	log := logger.WithComponent("scheduler")
//	log.Info("slice complete", logger.Fields("slice", 2, "size", 3))
package logger
