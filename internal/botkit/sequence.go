package botkit

import "strconv"

// ValidateSequence enforces placement: no nil elements, and at most one
// InteractiveEvent, which must come last.
func ValidateSequence(messages []Message) error {
	interactive := -1
	for i, m := range messages {
		if m == nil || isNilValue(m) {
			return &ProtocolError{Index: i, Reason: "nil message"}
		}
		if _, ok := m.(InteractiveEvent); !ok {
			continue
		}
		if interactive >= 0 {
			return &ProtocolError{
				Index:  i,
				Type:   m.Type(),
				Reason: "second interactive event; the first is at index " + strconv.Itoa(interactive),
			}
		}
		interactive = i
	}
	if interactive >= 0 && interactive != len(messages)-1 {
		return &ProtocolError{
			Index:  interactive,
			Type:   messages[interactive].Type(),
			Reason: "interactive event must be the last message",
		}
	}
	return nil
}

// Interactive returns the trailing InteractiveEvent of messages, if any.
func Interactive(messages []Message) (InteractiveEvent, bool) {
	if len(messages) == 0 {
		return nil, false
	}
	ev, ok := messages[len(messages)-1].(InteractiveEvent)
	return ev, ok
}
