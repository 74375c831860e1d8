package driven

import (
	"context"

	"github.com/tably-labs/tably-cli/internal/core/domain"
)

// Request is an HTTP-shaped request to the remote store. The engine
// does not know or care about the remote store's internal schema.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is the HTTP-shaped reply from the remote store.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// OK reports whether the response indicates success.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// RemoteStore is the remote platform API, used for both cache fill and
// sync-task replay. Transport failures are wrapped domain.ErrNetwork;
// an HTTP error status is a non-OK Response, not an error.
type RemoteStore interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// Notifier delivers fire-and-forget events to any listening UI.
// Implementations must never block and must swallow their own failures.
type Notifier interface {
	Notify(event domain.Event)
}

// ConnectivityProbe checks whether the remote store is reachable.
type ConnectivityProbe interface {
	// Online performs one reachability check.
	Online(ctx context.Context) bool
}
