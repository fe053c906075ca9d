// Package http exposes sessions, their persisted history and usage, prompt
// templates, saved configs and presets as a JSON REST API on gin.
//
// Domain errors map onto status codes in one place (statusFor): unknown
// sessions and records are 404, bad input and unknown tools 400, an open
// storage breaker 503, and everything else 500.
//
// Example Usage:
//
//	handlers := http.NewHandlers(svc, store, catalog, metrics, logger)
//	handlers.Register(router)
package http
