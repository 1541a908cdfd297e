package ws

import "encoding/json"

// InboundEnvelope is the generic envelope for all client-to-server
// messages. Type routes to a specific payload; Raw holds the full JSON so
// handlers can re-decode into the concrete message type.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON captures the raw payload alongside the routing type.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = json.RawMessage(data)
	return nil
}

// --- Client-to-server message payloads ---

// AuthMsg is sent by the client as the first message when the server is
// running with JWKS auth enabled.
type AuthMsg struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// JoinBoardMsg selects which hosted board this connection operates on.
type JoinBoardMsg struct {
	Type    string `json:"type"`
	BoardID string `json:"boardId"`
	ActorID string `json:"actorId,omitempty"` // used only when auth is not configured
}

// FlipMsg asks the server to flip one cell.
type FlipMsg struct {
	Type string `json:"type"`
	Row  int    `json:"row"`
	Col  int    `json:"col"`
}

// TransformMsg asks the server to apply a named transform to every
// present cell (spec's bulk transform operation; closures can't cross the
// wire, so the client names one of board.NamedTransformNames()).
type TransformMsg struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// WaitForChangeMsg asks the server to hold the connection open until the
// board's next publish-inducing mutation, then push a view.
type WaitForChangeMsg struct {
	Type string `json:"type"`
}

// ViewRequestMsg asks the server for the joined board's current view,
// with no waiting involved.
type ViewRequestMsg struct {
	Type string `json:"type"`
}

// --- Server-to-client messages ---

// ErrorMsg is sent when a client message is invalid or its operation
// failed.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ViewMsg carries a board snapshot for the connection's joined board, in
// the spec's wire view format.
type ViewMsg struct {
	Type string `json:"type"`
	View string `json:"view"`
}

// JoinedMsg confirms a successful JoinBoardMsg.
type JoinedMsg struct {
	Type    string `json:"type"`
	BoardID string `json:"boardId"`
	ActorID string `json:"actorId"`
	Rows    int    `json:"rows"`
	Cols    int    `json:"cols"`
}
