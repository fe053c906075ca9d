// Package server assembles the AgentDesk backend.
//
// Server Lifecycle:
//  1. Open storage (runs migrations) with the write breaker feeding metrics
//  2. Load presets from the builtins and the optional preset file
//  3. Build the session registry and the launcher on top of it
//  4. Mount middleware, REST routes, the /stream WebSocket and /metrics
//  5. Start: restore or reset saved sessions
//  6. Run: serve HTTP and watch the preset file until the context ends
//  7. Shutdown: stop HTTP, close sessions, close storage
package server
