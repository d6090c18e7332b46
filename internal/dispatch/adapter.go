package dispatch

import (
	"context"
	"fmt"

	"github.com/pagecraft/ai-router/internal/domain"
)

// ProviderAdapter translates the unified request into one backend's API and
// the backend response into the unified result. One implementation per
// backend; the dispatcher never sees a concrete SDK type.
type ProviderAdapter interface {
	ID() string
	Generate(ctx context.Context, modelID string, req domain.GenerationRequest) (*AdapterResult, error)
}

// AdapterResult is the raw backend output before the dispatcher attaches
// model, cost, and latency.
type AdapterResult struct {
	Content string
	Images  []domain.GeneratedImage
}

// BackendError reports a backend-side rejection. Charged marks calls the
// backend bills even though they failed; the ledger records that cost.
type BackendError struct {
	Status  int
	Body    string
	Charged bool
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error: status=%d body=%s", e.Status, e.Body)
}
