// Package views holds the per-screen state machines for the user list and the posts of a user.
// A view is entered once per screen appearance; its context is the cancellation token
// and Close marks the screen as gone.
package views

import (
	"context"
	"errors"

	"github.com/isdelr/usercache/internal/remote"
	"github.com/isdelr/usercache/internal/services"
)

// State is the observable state of a view.
type State string

const (
	StateLoading   State = "loading"
	StatePopulated State = "populated"
	StateEmpty     State = "empty"
)

// Outcome tells why a view ended in its current state.
type Outcome string

const (
	OutcomePending      Outcome = ""
	OutcomeSuccess      Outcome = "success"
	OutcomeEmpty        Outcome = "empty"
	OutcomeNetworkError Outcome = "network_error"
	OutcomeDecodeError  Outcome = "decode_error"
	OutcomeStorageError Outcome = "storage_error"
	OutcomeInvalidURL   Outcome = "invalid_url"
	OutcomeCancelled    Outcome = "cancelled"
	OutcomeFailed       Outcome = "error"
)

// Classify maps a load error to an Outcome. A nil error is a success.
func Classify(err error) Outcome {
	var (
		netErr     *remote.NetworkError
		decodeErr  *remote.DecodeError
		storageErr *services.StorageError
	)
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	case errors.Is(err, remote.ErrInvalidURL):
		return OutcomeInvalidURL
	case errors.As(err, &decodeErr):
		return OutcomeDecodeError
	case errors.As(err, &netErr):
		return OutcomeNetworkError
	case errors.As(err, &storageErr):
		return OutcomeStorageError
	default:
		return OutcomeFailed
	}
}

// Observer receives a snapshot after every state transition.
type Observer interface {
	Observe(action string, snapshot any)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(action string, snapshot any)

func (f ObserverFunc) Observe(action string, snapshot any) { f(action, snapshot) }
