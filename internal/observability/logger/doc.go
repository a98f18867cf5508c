// Package logger provides a singleton zap logger with context-based scoping.
//
// Initialize once in main:
//
//	logger.Init(logger.Config{Env: cfg.Env, Level: cfg.LogLevel})
//	defer logger.Sync()
//
// In controllers and services, pull the request-scoped logger from the
// context and tag it with layer/op fields:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("auth.token"))
//	log.Info("access token issued", logger.PlatformID(clientID))
package logger
