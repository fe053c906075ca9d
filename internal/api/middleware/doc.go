// Package middleware holds the gin middleware shared by the HTTP routes:
// CORS, rate limiting, body size limits, request ids and request logging.
package middleware
