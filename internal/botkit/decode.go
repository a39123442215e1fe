package botkit

import (
	"errors"
	"fmt"
)

// DecodeMessages turns a wire-shaped list (as produced by encoding/json or
// yaml.v3 into []any) into a validated message sequence.
func DecodeMessages(raw []any) ([]Message, error) {
	out := make([]Message, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &ProtocolError{Index: i, Reason: fmt.Sprintf("message is a %T, not an object", item)}
		}
		m, err := DecodeMessage(obj)
		if err != nil {
			var pe *ProtocolError
			if errors.As(err, &pe) && pe.Index < 0 {
				pe.Index = i
			}
			return nil, err
		}
		out = append(out, m)
	}
	if err := ValidateSequence(out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeMessage builds the variant named by raw["_type"]. Unknown or missing
// discriminators are protocol errors; missing mandatory fields surface as
// InvalidMessageError from the variant's constructor.
func DecodeMessage(raw map[string]any) (Message, error) {
	typ, _ := raw["_type"].(string)
	r := &fieldReader{typ: typ, raw: raw}
	switch typ {
	case TypeTextMessage:
		m := NewTextMessage(r.str("text"))
		return r.done(m)
	case TypeImageMessage:
		m := NewImageMessage(r.str("imageUrl"), r.flag("asAttachment"))
		return r.done(m)
	case TypeDataMessage:
		subType, data, intro, attach := DataSubType(r.str("subType")), normalize(raw["jsonData"]), r.str("introMessage"), r.flag("asAttachment")
		if r.err != nil {
			return nil, r.err
		}
		return NewDataMessage(subType, data, intro, attach)
	case TypeHandoffToHumanEvent:
		return NewHandoffToHumanEvent(), nil
	case TypeRichMessage:
		m := r.rich(raw)
		return r.done(m)
	case TypeButtonMessage:
		m := r.button(raw)
		return r.done(m)
	case TypeHTMLMessage:
		m := NewHTMLMessage(r.str("html"), r.str("height"), r.str("width"))
		return r.done(m)
	case TypeMultiRichMessage:
		var cards []RichMessage
		for i, item := range r.list("messages") {
			obj, ok := item.(map[string]any)
			if !ok || obj["_type"] != TypeRichMessage {
				return nil, invalid(typ, fmt.Sprintf("messages[%d]", i), "must be a RichMessage")
			}
			cards = append(cards, r.rich(obj))
		}
		return r.done(NewMultiRichMessage(cards...))
	case TypeMultiChoiceQuestion, TypeEmailQuestion, TypeOpenQuestion:
		return decodeQuestion(r)
	case TypeLoginOAuthEvent:
		success, err := DecodeHook(raw["loginSuccessHook"])
		if err != nil && raw["loginSuccessHook"] != nil {
			return nil, invalid(typ, "loginSuccessHook", reasonOf(err))
		}
		var opts []LoginOption
		if v, ok := raw["loginFailHook"]; ok && v != nil {
			fail, err := DecodeHook(v)
			if err != nil {
				return nil, invalid(typ, "loginFailHook", reasonOf(err))
			}
			opts = append(opts, WithLoginFailHook(fail))
		}
		if img := r.str("imageUrl"); img != "" {
			opts = append(opts, WithLoginImage(img))
		}
		webLoginURL, text := r.str("webLoginUrl"), r.str("text")
		if r.err != nil {
			return nil, r.err
		}
		return NewLoginOAuthEvent(webLoginURL, success, text, opts...)
	case TypeQuestionnaireEvent:
		var questions []Question
		for i, item := range r.list("questions") {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, invalid(typ, fmt.Sprintf("questions[%d]", i), "must be an object")
			}
			qt, _ := obj["_type"].(string)
			q, err := decodeQuestion(&fieldReader{typ: qt, raw: obj})
			if err != nil {
				return nil, err
			}
			questions = append(questions, q)
		}
		answered, err := DecodeHook(raw["questionnaireAnsweredHook"])
		if err != nil && raw["questionnaireAnsweredHook"] != nil {
			return nil, invalid(typ, "questionnaireAnsweredHook", reasonOf(err))
		}
		var opts []QuestionnaireOption
		if v, ok := raw["questionnaireAbortedHook"]; ok && v != nil {
			aborted, err := DecodeHook(v)
			if err != nil {
				return nil, invalid(typ, "questionnaireAbortedHook", reasonOf(err))
			}
			opts = append(opts, WithAbortedHook(aborted))
		}
		if r.err != nil {
			return nil, r.err
		}
		return NewQuestionnaireEvent(answered, questions, opts...)
	case "":
		return nil, &ProtocolError{Index: -1, Reason: "message has no _type"}
	default:
		return nil, &ProtocolError{Index: -1, Type: typ, Reason: "unknown message type"}
	}
}

func decodeQuestion(r *fieldReader) (Question, error) {
	name, text := r.str("name"), r.str("text")
	switch r.typ {
	case TypeMultiChoiceQuestion:
		choices := r.strings("choices")
		if r.err != nil {
			return nil, r.err
		}
		return NewMultiChoiceQuestion(name, text, choices...)
	case TypeEmailQuestion:
		if r.err != nil {
			return nil, r.err
		}
		return NewEmailQuestion(name, text)
	case TypeOpenQuestion:
		re := r.str("validationRegex")
		if r.err != nil {
			return nil, r.err
		}
		return NewOpenQuestion(name, text, re)
	}
	return nil, &ProtocolError{Index: -1, Type: r.typ, Reason: "not a question type"}
}

// DecodeHook reads a {webhook|url, payload} object.
func DecodeHook(v any) (Hook, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Hook{}, invalid("Hook", "", fmt.Sprintf("is a %T, not an object", v))
	}
	r := &fieldReader{typ: "Hook", raw: obj}
	h := Hook{URL: r.str("url"), Payload: normalize(obj["payload"])}
	if name := r.str("webhook"); name != "" {
		n, err := ParseWebhookName(name)
		if err != nil {
			return Hook{}, err
		}
		h.Webhook = n
	}
	if r.err != nil {
		return Hook{}, r.err
	}
	if err := h.Validate(); err != nil {
		return Hook{}, err
	}
	return h, nil
}

type fieldReader struct {
	typ string
	raw map[string]any
	err error
}

func (r *fieldReader) done(m Message) (Message, error) {
	if r.err != nil {
		return nil, r.err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *fieldReader) fail(field, reason string) {
	if r.err == nil {
		r.err = invalid(r.typ, field, reason)
	}
}

func (r *fieldReader) str(name string) string {
	v, ok := r.raw[name]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(name, fmt.Sprintf("must be a string, got %T", v))
	}
	return s
}

func (r *fieldReader) flag(name string) bool {
	v, ok := r.raw[name]
	if !ok || v == nil {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(name, fmt.Sprintf("must be a boolean, got %T", v))
	}
	return b
}

func (r *fieldReader) list(name string) []any {
	v, ok := r.raw[name]
	if !ok || v == nil {
		return nil
	}
	l, ok := v.([]any)
	if !ok {
		r.fail(name, fmt.Sprintf("must be a list, got %T", v))
	}
	return l
}

func (r *fieldReader) strings(name string) []string {
	items := r.list(name)
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			r.fail(fmt.Sprintf("%s[%d]", name, i), "must be a string")
			return nil
		}
		out = append(out, s)
	}
	return out
}

func (r *fieldReader) button(obj map[string]any) ButtonMessage {
	br := &fieldReader{typ: TypeButtonMessage, raw: obj}
	b := ButtonMessage{Text: br.str("text"), URL: br.str("url"), Payload: normalize(obj["payload"])}
	if v, ok := obj["action"].(map[string]any); ok {
		ar := &fieldReader{typ: TypeInsertTextAction, raw: v}
		switch at, _ := v["_type"].(string); at {
		case TypeInsertTextAction:
			b.Action = InsertTextAction{Text: ar.str("text")}
		default:
			br.fail("action", "has unknown _type "+quote(at))
		}
		if ar.err != nil && br.err == nil {
			br.err = ar.err
		}
	}
	if br.err != nil && r.err == nil {
		r.err = br.err
	}
	return b
}

func (r *fieldReader) rich(obj map[string]any) RichMessage {
	rr := &fieldReader{typ: TypeRichMessage, raw: obj}
	m := RichMessage{
		Title:    rr.str("title"),
		Subtitle: rr.str("subtitle"),
		ImageURL: rr.str("imageUrl"),
		URL:      rr.str("url"),
	}
	for i, item := range rr.list("buttons") {
		bo, ok := item.(map[string]any)
		if !ok {
			rr.fail(fmt.Sprintf("buttons[%d]", i), "must be an object")
			break
		}
		m.Buttons = append(m.Buttons, rr.button(bo))
	}
	if rr.err != nil && r.err == nil {
		r.err = rr.err
	}
	return m
}

// normalize rewrites map[any]any (yaml.v3 output for non-string keys) into
// map[string]any so opaque payloads stay encodable.
func normalize(v any) any {
	switch x := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case map[string]any:
		for k, val := range x {
			x[k] = normalize(val)
		}
		return x
	case []any:
		for i, val := range x {
			x[i] = normalize(val)
		}
		return x
	}
	return v
}
