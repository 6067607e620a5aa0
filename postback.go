package authbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
)

// DefaultPostbackTimeout bounds the only unbounded suspension point in
// the flow: the server-to-server token delivery.
const DefaultPostbackTimeout = 5 * time.Second

// PostbackPayload is the JSON body delivered to the relying party.
// State serializes as null when the flow carried none.
type PostbackPayload struct {
	Token string  `json:"token"`
	State *string `json:"state"`
}

// PostbackClient POSTs issued tokens to relying-party postback URLs.
type PostbackClient struct {
	client *http.Client
	logger Logger
}

// NewPostbackClient creates a client with the given timeout; a
// non-positive timeout falls back to DefaultPostbackTimeout.
func NewPostbackClient(timeout time.Duration, logger Logger) *PostbackClient {
	if timeout <= 0 {
		timeout = DefaultPostbackTimeout
	}
	if logger == nil {
		logger = defLogger{}
	}

	return &PostbackClient{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Deliver POSTs {token, state} to url. Transport failure, timeout, and
// non-2xx responses all count as delivery failure.
func (p *PostbackClient) Deliver(ctx context.Context, url, token string, state *string) error {
	body, err := json.Marshal(PostbackPayload{Token: token, State: state})
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to encode postback payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "failed to build postback request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		metricPostbacks.WithLabelValues("transport_error").Inc()
		return errors.Wrap(err, errors.CategoryOperation, "postback request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metricPostbacks.WithLabelValues("bad_status").Inc()
		return errors.New("postback target rejected the delivery", errors.CategoryOperation).
			WithMetadata(map[string]any{"status": resp.StatusCode})
	}

	metricPostbacks.WithLabelValues("delivered").Inc()
	return nil
}
