package ws

// Operation codes for WebSocket messages
type OpCode int

// ProtocolVersion is the exact server/client board feed protocol version.
// Bump this only for breaking wire-contract changes.
const ProtocolVersion = 1

const (
	// DISPATCH - board events with a type field and a sequence number
	OpDispatch OpCode = 0

	// Lifecycle ops (Server -> Client)
	OpHello OpCode = 1 // Sent on connection
)

// Event types (Server -> Client via DISPATCH) that are not idea events.
// Idea events carry the type chosen by the publisher.
const (
	EventViewersUpdate = "BOARD_VIEWERS"
)

type WSMessage struct {
	Op   OpCode `json:"op"`
	Type string `json:"t,omitempty"` // Event type (only for DISPATCH)
	Seq  int64  `json:"s,omitempty"`
	Data any    `json:"d,omitempty"`
}

// Server -> Client payloads

type HelloPayload struct {
	ProtocolVersion int    `json:"protocol_version"`
	ConnectionID    string `json:"connection_id"`
	UserID          int64  `json:"user_id"`
	Sequence        int64  `json:"sequence"` // last sequence dispatched before this connection
}

type ViewersPayload struct {
	Viewers int `json:"viewers"`
}
