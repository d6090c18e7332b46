package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPrompt       = errors.New("invalid prompt")
	ErrModelNotFound       = errors.New("model not found")
	ErrBudgetExceeded      = errors.New("budget exceeded")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrGenerationFailed    = errors.New("generation failed")
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
)

// Stable machine-readable codes carried by rejections. These are part of the
// public contract consumed by the dashboard and must not change.
const (
	CodeInvalidPrompt       = "invalid_prompt"
	CodeModelNotFound       = "model_not_found"
	CodeBudgetExceeded      = "budget_exceeded"
	CodeProviderUnavailable = "provider_unavailable"
	CodeGenerationFailed    = "generation_failed"
)

// Rejection is a typed, user-displayable failure. Reason is safe to show to
// end users verbatim; Err carries the underlying cause for logs.
type Rejection struct {
	Code   string
	Reason string
	Err    error
}

func (r *Rejection) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %s: %v", r.Code, r.Reason, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Reason)
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

func NewInvalidPrompt(reason string) *Rejection {
	return &Rejection{Code: CodeInvalidPrompt, Reason: reason, Err: ErrInvalidPrompt}
}

func NewModelNotFound(modelID string, requestType RequestType) *Rejection {
	return &Rejection{
		Code:   CodeModelNotFound,
		Reason: fmt.Sprintf("model %q is not registered for %s generation", modelID, requestType),
		Err:    ErrModelNotFound,
	}
}

func NewBudgetExceeded(reason string) *Rejection {
	return &Rejection{Code: CodeBudgetExceeded, Reason: reason, Err: ErrBudgetExceeded}
}

func NewProviderUnavailable(modelID string, cause error) *Rejection {
	return &Rejection{
		Code:   CodeProviderUnavailable,
		Reason: "the AI service is temporarily unavailable, please try again",
		Err:    fmt.Errorf("%w: model %s: %w", ErrProviderUnavailable, modelID, cause),
	}
}

func NewGenerationFailed(cause error) *Rejection {
	return &Rejection{
		Code:   CodeGenerationFailed,
		Reason: "generation failed, you have not been charged for a result",
		Err:    fmt.Errorf("%w: %w", ErrGenerationFailed, cause),
	}
}

// AsRejection extracts a Rejection from an error chain.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
