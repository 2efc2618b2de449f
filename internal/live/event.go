// Package live pushes view state to browser clients over WebSocket.
//
// Every frame is an Event. The server sends a full state frame whenever the
// view behind the connection changes; clients send heartbeats and, on the
// listings stream, search queries.
package live

// Event is one WebSocket frame in either direction.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client to server.
const (
	OpHeartbeat = "heartbeat"
	OpQuery     = "query"
)

// Server to client.
const (
	OpHeartbeatAck = "heartbeat_ack"
	OpListings     = "listings"
	OpInbox        = "inbox"
)

// QueryData is the payload of OpQuery.
type QueryData struct {
	Q string `json:"q"`
}
