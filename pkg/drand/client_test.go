package drand

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLatest(t *testing.T) {
	ctx := context.Background()

	t.Run("parses a beacon round", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"round":4642601,"randomness":"4a0c1467d991d4f55d6a21788d6f90c38a6b7de45a41d8f0a1e42ae0adff1a1c"}`))
		}))
		defer server.Close()

		round, err := NewClient(server.URL).Latest(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if round.Round != 4642601 {
			t.Errorf("expected round 4642601, got %d", round.Round)
		}
		if round.Randomness != "4a0c1467d991d4f55d6a21788d6f90c38a6b7de45a41d8f0a1e42ae0adff1a1c" {
			t.Errorf("unexpected randomness %q", round.Randomness)
		}
	})

	t.Run("rejects a non-200 response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		if _, err := NewClient(server.URL).Latest(ctx); err == nil {
			t.Fatal("expected an error for a 502 response")
		}
	})

	t.Run("rejects a response without randomness", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"round":1}`))
		}))
		defer server.Close()

		if _, err := NewClient(server.URL).Latest(ctx); err == nil {
			t.Fatal("expected an error for a missing randomness value")
		}
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := NewClient(server.URL).Latest(cancelled); err == nil {
			t.Fatal("expected an error for a cancelled context")
		}
	})
}

func TestNewClientDefaultURL(t *testing.T) {
	if got := NewClient("").url; got != DefaultURL {
		t.Errorf("expected the default endpoint, got %q", got)
	}
}
