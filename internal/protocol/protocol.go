package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"

	// Requests (client -> server). Each carries an id echoed in RESULT.
	TypeSet    = "SET"
	TypeGet    = "GET"
	TypeUpdate = "UPDATE"
	TypeDelete = "DELETE"
	TypeSub    = "SUB"
	TypeSubCol = "SUBCOL"
	TypeUnsub  = "UNSUB"

	// Server -> client.
	TypeResult     = "RESULT"
	TypeEvent      = "EVENT"
	TypeCollection = "COLLECTION"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

func IsRequest(t string) bool {
	switch t {
	case TypeSet, TypeGet, TypeUpdate, TypeDelete, TypeSub, TypeSubCol, TypeUnsub:
		return true
	}
	return false
}
