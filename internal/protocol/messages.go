package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ConnID          string `json:"conn_id"`
	CatalogDigest   string `json:"catalog_digest"`
	Backend         string `json:"backend,omitempty"`
}

// RequestMsg is shared by every request type. UNSUB names the subscription
// by the id of the SUB/SUBCOL request that opened it.
type RequestMsg struct {
	Type   string         `json:"type"`
	ID     string         `json:"id"`
	Path   string         `json:"path,omitempty"`
	Doc    map[string]any `json:"doc,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
	SubID  string         `json:"sub_id,omitempty"`
}

type ResultMsg struct {
	Type    string         `json:"type"`
	ID      string         `json:"id"`
	OK      bool           `json:"ok"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Doc     map[string]any `json:"doc,omitempty"`
}

type EventMsg struct {
	Type    string         `json:"type"`
	SubID   string         `json:"sub_id"`
	Path    string         `json:"path"`
	Doc     map[string]any `json:"doc,omitempty"`
	Deleted bool           `json:"deleted,omitempty"`
}

type CollectionMsg struct {
	Type    string                    `json:"type"`
	SubID   string                    `json:"sub_id"`
	Path    string                    `json:"path"`
	Members map[string]map[string]any `json:"members"`
}
