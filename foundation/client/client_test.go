package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nac-codes/blockbard/foundation/client"
)

func Test_Send(t *testing.T) {
	t.Run("decodes a success response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"message":"hello"}`))
		}))
		defer srv.Close()

		var resp struct {
			Message string `json:"message"`
		}

		cln := client.New(nil)
		if err := cln.Send(context.Background(), http.MethodGet, srv.URL, nil, &resp); err != nil {
			t.Fatalf("Test:\tShould succeed against a healthy server: %s", err)
		}

		if resp.Message != "hello" {
			t.Fatalf("Test:\tShould decode the response, got %q.", resp.Message)
		}
	})

	t.Run("conflicts are returned without retrying", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"duplicate story position"}`))
		}))
		defer srv.Close()

		cln := client.New(nil)
		err := cln.Send(context.Background(), http.MethodPost, srv.URL, map[string]string{"k": "v"}, nil)

		if !client.IsConflict(err) {
			t.Fatalf("Test:\tShould surface a 409 as a conflict, got: %v", err)
		}

		if !strings.Contains(string(client.ConflictBody(err)), "duplicate story position") {
			t.Fatalf("Test:\tShould keep the conflict body, got %q.", client.ConflictBody(err))
		}

		if n := atomic.LoadInt32(&calls); n != 1 {
			t.Fatalf("Test:\tShould never retry a conflict, got %d calls.", n)
		}
	})

	t.Run("server errors are retried", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		cln := client.New(nil)
		if err := cln.Send(context.Background(), http.MethodGet, srv.URL, nil, nil); err != nil {
			t.Fatalf("Test:\tShould succeed once the server recovers: %s", err)
		}

		if n := atomic.LoadInt32(&calls); n != 3 {
			t.Fatalf("Test:\tShould have retried through the failures, got %d calls.", n)
		}
	})

	t.Run("unreachable peer wraps ErrUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		cln := client.New(nil)
		err := cln.Send(context.Background(), http.MethodGet, srv.URL, nil, nil)

		if !errors.Is(err, client.ErrUnavailable) {
			t.Fatalf("Test:\tShould report the peer as unreachable, got: %v", err)
		}
	})

	t.Run("client errors are permanent", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		cln := client.New(nil)
		err := cln.Send(context.Background(), http.MethodGet, srv.URL, nil, nil)

		if err == nil || client.IsConflict(err) || errors.Is(err, client.ErrUnavailable) {
			t.Fatalf("Test:\tShould return a plain error for a 400, got: %v", err)
		}

		if n := atomic.LoadInt32(&calls); n != 1 {
			t.Fatalf("Test:\tShould never retry a client error, got %d calls.", n)
		}
	})
}
