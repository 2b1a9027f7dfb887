// Package signaling contains the WebSocket session router: connection
// lifecycle, per-event validation and dispatch, and the relay/broadcast
// primitives that deliver meeting events between connected clients.
package signaling
