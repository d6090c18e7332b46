package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pagecraft/ai-router/internal/dispatch"
	"github.com/pagecraft/ai-router/internal/domain"
)

func TestGenerateServerErrorMarkedCharged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := New("test-key", srv.URL)
	_, err := a.Generate(context.Background(), "gpt-4o-mini", domain.GenerationRequest{
		RequestType: domain.RequestTypeText,
		Prompt:      "say hello",
	})

	var be *dispatch.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want BackendError", err)
	}
	if be.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", be.Status)
	}
	if !be.Charged {
		t.Error("Charged = false for a 5xx, want true")
	}
}

func TestGenerateClientErrorNotCharged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := New("test-key", srv.URL)
	_, err := a.Generate(context.Background(), "dall-e-2", domain.GenerationRequest{
		RequestType: domain.RequestTypeImage,
		Prompt:      "a small cabin",
	})

	var be *dispatch.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want BackendError", err)
	}
	if be.Charged {
		t.Error("Charged = true for a 4xx, want false")
	}
}
