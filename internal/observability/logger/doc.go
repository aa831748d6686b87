// Package logger provides a singleton Zap logger with context-based scoping.
//
// # Design Decisions
//
//   - Singleton: one global instance initialized with Init().
//   - Context scoping: each request can carry a scoped logger with extra
//     fields (request_id, user_id, ...) without building a new core.
//   - Environments: "dev" logs to a colored console, "prod" logs JSON.
//   - Levels: debug, info, warn, error (configurable via LOG_LEVEL).
//
// # Usage
//
// Initialization (once, in main):
//
//	logger.Init(logger.Config{
//	    Env:   cfg.App.Env,   // "dev" or "prod"
//	    Level: cfg.App.LogLevel,
//	})
//	defer logger.Sync()
//
// In handlers/services (with a context):
//
//	log := logger.From(ctx)
//	log.Info("session issued", logger.UserID(userID))
//
// Without a context (falls back to the singleton):
//
//	logger.L().Info("server started")
package logger
