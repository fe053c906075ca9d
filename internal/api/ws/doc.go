// Package ws streams terminal sessions over a WebSocket.
//
// Message Types (Client → Server):
//   - create: launch a session from config; its events stream to this connection
//   - write: send input to a session
//   - resize: change a session's geometry
//   - stop: close a session
//   - list: snapshot of live sessions
//   - ping: keep-alive
//
// Message Types (Server → Client):
//   - connected: sent once with the connection id
//   - created, stopped, sessions, pong: replies
//   - data, exited, error: session events, in read order per session
//   - error: also used for rejected requests
//
// One goroutine writes to the socket; everything else queues frames on a
// buffered channel. A slow reader therefore slows the sessions it watches.
// Once the socket closes their events are dropped and the sessions keep
// running.
//
// Example Usage:
//
//	handler := ws.NewHandler(svc, metrics, logger)
//	router.GET("/stream", handler.HandleConnection)
package ws
