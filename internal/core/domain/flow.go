package domain

// FlowState is the authorization flow controller state
type FlowState string

const (
	FlowStateIdle             FlowState = "idle"
	FlowStateAwaitingRedirect FlowState = "awaiting_redirect"
	FlowStateExchanging       FlowState = "exchanging"
	FlowStateConnected        FlowState = "connected"
	FlowStateFailed           FlowState = "failed"
)

// IsPending returns true while an attempt is waiting on the user or the token endpoint
func (s FlowState) IsPending() bool {
	return s == FlowStateAwaitingRedirect || s == FlowStateExchanging
}

// IsTerminal returns true if the attempt has finished
func (s FlowState) IsTerminal() bool {
	return s == FlowStateConnected || s == FlowStateFailed
}
