// Package logger provides the structured logging interface used across taskrecover.
//
// It wraps zerolog behind a small Logger interface so components can take a logger as a
// dependency and tests can swap in NewNopLogger or NewTestLogger.
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("worker_id", 2)
//	log.InfoWithFields("Checkpoint saved", map[string]interface{}{"task_count": 4})
//
// Console output is human readable; when LoggingConfig.File is set, JSON events are also
// appended to that file.
package logger
