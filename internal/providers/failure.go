package providers

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifica i fallimenti dei provider
type FailureKind string

const (
	FailureTimeout            FailureKind = "timeout"
	FailureRateLimited        FailureKind = "rate_limited"
	FailureAuthError          FailureKind = "auth_error"
	FailureBackendUnavailable FailureKind = "backend_unavailable"
	FailureInvalidResponse    FailureKind = "invalid_response"
)

// Failure rappresenta un fallimento classificato di un provider.
// Retriable indica se ha senso ritentare lo stesso provider.
type Failure struct {
	ProviderID string      `json:"provider_id"`
	Kind       FailureKind `json:"kind"`
	Message    string      `json:"message"`
	Retriable  bool        `json:"retriable"`
}

// Error implementa error
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s (%s)", f.ProviderID, f.Message, f.Kind)
}

// NewFailure crea un failure con retriability derivata dal kind
func NewFailure(providerID string, kind FailureKind, message string) *Failure {
	retriable := false
	switch kind {
	case FailureTimeout, FailureRateLimited, FailureBackendUnavailable:
		retriable = true
	}

	return &Failure{
		ProviderID: providerID,
		Kind:       kind,
		Message:    message,
		Retriable:  retriable,
	}
}

// ClassifyHTTPStatus mappa uno status HTTP in un failure
func ClassifyHTTPStatus(providerID string, status int, message string) *Failure {
	if message == "" {
		message = fmt.Sprintf("API error: status %d", status)
	}

	switch {
	case status == 401 || status == 403:
		return NewFailure(providerID, FailureAuthError, message)
	case status == 408:
		return NewFailure(providerID, FailureTimeout, message)
	case status == 429:
		return NewFailure(providerID, FailureRateLimited, message)
	case status >= 500:
		return NewFailure(providerID, FailureBackendUnavailable, message)
	default:
		return NewFailure(providerID, FailureInvalidResponse, message)
	}
}

// ClassifyError mappa un errore di trasporto in un failure.
// Context scaduto o cancellato diventa un timeout, il resto è
// indisponibilità del backend.
func ClassifyError(providerID string, err error) *Failure {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewFailure(providerID, FailureTimeout, err.Error())
	}

	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	return NewFailure(providerID, FailureBackendUnavailable, err.Error())
}

// AsFailure estrae un *Failure da un errore, se presente
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
