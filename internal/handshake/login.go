// Package handshake implements the two interactive handshakes of the BotKit
// protocol. Both are stateless: every continuation request is judged on its
// own body, correlated to the initiating response only through the hook.
package handshake

import (
	"botkit-webhooks/internal/botkit"
	"botkit-webhooks/internal/types"
)

// LockState is the state of a login-protected resource for one exchange.
type LockState int

const (
	Locked LockState = iota
	Unlocked
)

func (s LockState) String() string {
	if s == Unlocked {
		return "unlocked"
	}
	return "locked"
}

// LoginGate protects content behind the login handshake.
type LoginGate struct {
	event botkit.LoginOAuthEvent
}

// NewLoginGate wraps an initiating event. The event is validated so a gate
// can never emit an invalid LoginOAuthEvent.
func NewLoginGate(event botkit.LoginOAuthEvent) (LoginGate, error) {
	if err := event.Validate(); err != nil {
		return LoginGate{}, err
	}
	return LoginGate{event: event}, nil
}

// Event returns the initiating event the gate emits while locked.
func (g LoginGate) Event() botkit.LoginOAuthEvent { return g.event }

// State reports Unlocked only when the request carries a present loginData.
func (g LoginGate) State(req types.ContinuationRequest) LockState {
	if botkit.IsPresent(req.LoginData) {
		return Unlocked
	}
	return Locked
}

// Respond returns protected when the request is unlocked, and a fresh login
// prompt otherwise.
func (g LoginGate) Respond(req types.ContinuationRequest, protected []botkit.Message) []botkit.Message {
	if g.State(req) == Unlocked {
		return protected
	}
	return []botkit.Message{g.event}
}
