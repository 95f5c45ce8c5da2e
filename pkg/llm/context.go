package llm

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	conversationIDKey contextKey = "llm_conversation_id"

	// requestIDHeader lets provider-side logs be matched with ours.
	requestIDHeader = "X-Request-Id"
)

// WithConversationID attaches the id used to correlate one advice request
// across our logs and the provider's.
func WithConversationID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, conversationIDKey, id)
}

// GetConversationID returns the conversation id from ctx, if present.
func GetConversationID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(conversationIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// contextAwareTransport copies the conversation id from the request context
// into the X-Request-Id header.
type contextAwareTransport struct {
	base http.RoundTripper
}

func (t *contextAwareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if id, ok := GetConversationID(req.Context()); ok {
		req = req.Clone(req.Context())
		req.Header.Set(requestIDHeader, id.String())
	}
	return t.base.RoundTrip(req)
}
