package types

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseContinuation(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		check       func(t *testing.T, req ContinuationRequest)
	}{
		{
			name:        "json login data",
			contentType: "application/json",
			body:        `{"loginData":{"x":1},"chatKey":"ck"}`,
			check: func(t *testing.T, req ContinuationRequest) {
				assert.Equal(t, map[string]any{"x": float64(1)}, req.LoginData)
				assert.Equal(t, "ck", req.ChatKey)
			},
		},
		{
			name: "json without content type",
			body: `{"answers":{"bot_or_agent":"YatraBot Please!"}}`,
			check: func(t *testing.T, req ContinuationRequest) {
				assert.Equal(t, map[string]any{"bot_or_agent": "YatraBot Please!"}, req.Answers)
			},
		},
		{
			name:        "form body",
			contentType: "application/x-www-form-urlencoded; charset=utf-8",
			body:        "loginData=token&email=a%40b.c",
			check: func(t *testing.T, req ContinuationRequest) {
				assert.Equal(t, "token", req.LoginData)
				assert.Equal(t, "a@b.c", req.Raw["email"])
			},
		},
		{
			name:        "garbled json",
			contentType: "application/json",
			body:        `{"loginData":`,
			check: func(t *testing.T, req ContinuationRequest) {
				assert.Equal(t, ContinuationRequest{}, req)
			},
		},
		{
			name:        "wrongly typed fields",
			contentType: "application/json",
			body:        `{"answers":"nope","chatKey":7}`,
			check: func(t *testing.T, req ContinuationRequest) {
				assert.Nil(t, req.Answers)
				assert.Empty(t, req.ChatKey)
				assert.Equal(t, "nope", req.Raw["answers"])
			},
		},
		{
			name: "empty body",
			check: func(t *testing.T, req ContinuationRequest) {
				assert.Equal(t, ContinuationRequest{}, req)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			tt.check(t, ParseContinuation(r))
		})
	}
}
