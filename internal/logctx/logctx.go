// Package logctx attaches request-scoped attributes to slog records.
package logctx

import (
	"context"
	"io"
	"log/slog"
)

// Handler adds the request and handshake data found in the record's context.
type Handler struct {
	slog.Handler
}

// New returns a JSON logger writing to w through Handler.
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(Handler{Handler: slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})})
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		r.AddAttrs(slog.Group("req",
			slog.String("id", rd.RequestID),
			slog.String("method", rd.Method),
			slog.String("path", rd.Path),
			slog.String("remote_addr", rd.RemoteAddr),
		))
	}

	if hd, ok := ctx.Value(handshakeDataKey{}).(*HandshakeData); ok {
		r.AddAttrs(slog.Group("handshake",
			slog.String("name", hd.Name),
			slog.String("chat_key", hd.ChatKey),
		))
	}

	return h.Handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(name)}
}

type requestDataKey struct{}

type RequestData struct {
	RequestID  string
	Method     string
	Path       string
	RemoteAddr string
}

func WithRequestData(ctx context.Context, data *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, data)
}

// RequestID returns the id of the request carried by ctx, if any.
func RequestID(ctx context.Context) string {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd.RequestID
	}
	return ""
}

type handshakeDataKey struct{}

type HandshakeData struct {
	Name    string
	ChatKey string
}

func WithHandshakeData(ctx context.Context, data *HandshakeData) context.Context {
	return context.WithValue(ctx, handshakeDataKey{}, data)
}
