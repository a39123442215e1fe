package types

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/elnormous/contenttype"
)

const maxBodyBytes = 1 << 20

var formMediaType = contenttype.NewMediaType("application/x-www-form-urlencoded")

// ParseContinuation reads a continuation request from r. Form bodies are
// flattened to their first value per key; anything else is tried as a JSON
// object. A body that cannot be read yields the zero request.
func ParseContinuation(r *http.Request) ContinuationRequest {
	if r.Body == nil {
		return ContinuationRequest{}
	}
	if ctype, err := contenttype.GetMediaType(r); err == nil && ctype.Matches(formMediaType) {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return ContinuationRequest{}
		}
		raw := make(map[string]any, len(r.PostForm))
		for k, vs := range r.PostForm {
			if len(vs) > 0 {
				raw[k] = vs[0]
			}
		}
		return ContinuationFromMap(raw)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || len(body) == 0 {
		return ContinuationRequest{}
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return ContinuationRequest{}
	}
	return ContinuationFromMap(raw)
}
