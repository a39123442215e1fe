package types

// ContinuationRequest is the body the platform posts when it calls a hook
// back. Every field is optional; a missing or malformed field is simply
// absent.
type ContinuationRequest struct {
	LoginData any            `json:"loginData,omitempty"`
	Answers   map[string]any `json:"answers,omitempty"`
	Payload   any            `json:"payload,omitempty"`
	ChatKey   string         `json:"chatKey,omitempty"`
	// Raw keeps every top-level field of the body, including the ones above.
	Raw map[string]any `json:"-"`
}

// ContinuationFromMap picks the known fields out of a decoded body, ignoring
// fields of the wrong type.
func ContinuationFromMap(raw map[string]any) ContinuationRequest {
	req := ContinuationRequest{Raw: raw}
	if raw == nil {
		return req
	}
	req.LoginData = raw["loginData"]
	req.Payload = raw["payload"]
	if answers, ok := raw["answers"].(map[string]any); ok {
		req.Answers = answers
	}
	if ck, ok := raw["chatKey"].(string); ok {
		req.ChatKey = ck
	}
	return req
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

type WebhooksResponse struct {
	Webhooks []string `json:"webhooks"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	BotkitVersion string `json:"botkitVersion"`
}
