// Package logger provides structured logging for the migration engine
// using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("executor")
//	log.Info("operation completed", logger.Fields("operation", "get_projects"))
package logger
