package domain

import "testing"

func TestFlowState(t *testing.T) {
	tests := []struct {
		state    FlowState
		pending  bool
		terminal bool
	}{
		{FlowStateIdle, false, false},
		{FlowStateAwaitingRedirect, true, false},
		{FlowStateExchanging, true, false},
		{FlowStateConnected, false, true},
		{FlowStateFailed, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsPending(); got != tt.pending {
				t.Errorf("IsPending() = %v, want %v", got, tt.pending)
			}
			if got := tt.state.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}
