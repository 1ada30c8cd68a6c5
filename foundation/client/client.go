// Package client provides the one retrying HTTP client used for all node to
// node and node to tracker calls. Retry policy, escalating timeouts, and the
// translation of transport failures into an unreachable signal live here so
// the call sites don't grow their own ad hoc versions.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrUnavailable is returned when a peer can't be reached after all retries
// are exhausted. Callers must treat this as the peer being unreachable and
// proceed without it, not as a failure of their own operation.
var ErrUnavailable = errors.New("peer unreachable")

// ConflictError is returned when a peer answers 409. The body is kept so the
// caller can react to the peer's view of the world, like a stale head hash.
type ConflictError struct {
	Body []byte
}

// Error implements the error interface.
func (ce *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", string(ce.Body))
}

// IsConflict checks if an error of type ConflictError exists.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// ConflictBody returns the response body of a conflict error, if any.
func ConflictBody(err error) []byte {
	var ce *ConflictError
	if !errors.As(err, &ce) {
		return nil
	}
	return ce.Body
}

// =============================================================================

// EventHandler defines a function that is called when interesting things
// happen inside the client.
type EventHandler func(v string, args ...any)

// transientError marks a failure worth retrying, a transport error or a
// peer side 5xx.
type transientError struct {
	err error
}

// Error implements the error interface.
func (te *transientError) Error() string {
	return te.err.Error()
}

// Client performs JSON HTTP calls with bounded exponential backoff and a
// per-attempt timeout that grows with each retry.
type Client struct {
	maxRetries  uint64
	baseTimeout time.Duration
	evHandler   EventHandler
}

// New constructs a client for use.
func New(evHandler EventHandler) *Client {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Client{
		maxRetries:  3,
		baseTimeout: 2 * time.Second,
		evHandler:   ev,
	}
}

// Send performs the specified call against the url. The dataSend value is
// marshaled as the JSON body when not nil and a 2xx response is decoded into
// dataRecv when not nil. A 409 is returned as a ConflictError without being
// retried. Transport failures and 5xx responses are retried; once the retries
// are exhausted the error wraps ErrUnavailable.
func (c *Client) Send(ctx context.Context, method string, url string, dataSend any, dataRecv any) error {
	var body []byte
	if dataSend != nil {
		data, err := json.Marshal(dataSend)
		if err != nil {
			return fmt.Errorf("unable to marshal payload: %w", err)
		}
		body = data
	}

	var attempt uint64

	op := func() error {
		attempt++

		// Each retry gets a little more time than the one before it.
		timeout := c.baseTimeout * time.Duration(attempt)
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		var client http.Client
		resp, err := client.Do(req)
		if err != nil {
			c.evHandler("client: send: attempt[%d]: %s %s: %s", attempt, method, url, err)
			return &transientError{err}
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= http.StatusInternalServerError:
			msg, _ := io.ReadAll(resp.Body)
			return &transientError{fmt.Errorf("status %d: %s", resp.StatusCode, string(msg))}

		case resp.StatusCode == http.StatusConflict:
			msg, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(&ConflictError{Body: msg})

		case resp.StatusCode >= http.StatusBadRequest:
			msg, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, string(msg)))

		case resp.StatusCode == http.StatusNoContent:
			return nil
		}

		if dataRecv != nil {
			if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
				return backoff.Permanent(fmt.Errorf("unable to decode response: %w", err))
			}
		}

		return nil
	}

	boff := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)

	if err := backoff.Retry(op, boff); err != nil {

		// Transient failures at this point mean the retries are spent and we
		// never got an answer. Client side errors (conflicts included) come
		// back untouched so the caller can see them.
		var te *transientError
		if errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s: %s", ErrUnavailable, url, err)
		}

		return err
	}

	return nil
}
