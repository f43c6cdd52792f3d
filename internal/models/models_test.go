package models

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    PaymentStatus
		to      PaymentStatus
		allowed bool
	}{
		{name: "created to waiting", from: StatusCreated, to: StatusWaitingForFunding, allowed: true},
		{name: "waiting to funded", from: StatusWaitingForFunding, to: StatusFunded, allowed: true},
		{name: "funded to burned", from: StatusFunded, to: StatusZecBurned, allowed: true},
		{name: "funded skips burn", from: StatusFunded, to: StatusIntentPosted, allowed: true},
		{name: "burned to intent", from: StatusZecBurned, to: StatusIntentPosted, allowed: true},
		{name: "intent to paid", from: StatusIntentPosted, to: StatusPaid, allowed: true},
		{name: "backwards", from: StatusFunded, to: StatusWaitingForFunding, allowed: false},
		{name: "self", from: StatusFunded, to: StatusFunded, allowed: false},
		{name: "error from created", from: StatusCreated, to: StatusError, allowed: true},
		{name: "error from intent posted", from: StatusIntentPosted, to: StatusError, allowed: true},
		{name: "out of paid", from: StatusPaid, to: StatusError, allowed: false},
		{name: "out of error", from: StatusError, to: StatusFunded, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.allowed {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	if !StatusPaid.Terminal() || !StatusError.Terminal() {
		t.Error("PAID and ERROR must be terminal")
	}
	if StatusIntentPosted.Terminal() {
		t.Error("INTENT_POSTED must not be terminal")
	}
}
