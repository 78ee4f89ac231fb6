package download

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type (
	// FailureKind partitions transfer failures into the classes the
	// engine treats differently: transient failures are retried,
	// permanent ones are not, local I/O failures can abort the whole
	// run, and cancellation is kept distinct so a user interrupt is
	// never mistaken for a network fault.
	FailureKind int

	// TransferError is the terminal cause attached to a failed task.
	TransferError struct {
		Kind FailureKind
		Err  error
	}

	// RetryPolicy describes how transient failures are retried. It is
	// plain configuration so tests can exercise retry behaviour with
	// near-zero delays.
	RetryPolicy struct {
		// MaxAttempts is the total number of attempts, including the
		// first one. Values below 1 behave as 1.
		MaxAttempts int

		InitialDelay time.Duration
		Multiplier   float64

		// MaxDelay caps the growth of the backoff interval.
		MaxDelay time.Duration

		// RandomizationFactor is the jitter applied around each
		// interval (0.5 means +/-50%), avoiding thundering-herd
		// behaviour against the remote host.
		RandomizationFactor float64
	}
)

const (
	FailureTransient FailureKind = iota
	FailurePermanent
	FailureLocal
	FailureCancelled
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransient:
		return "transient"
	case FailurePermanent:
		return "permanent"
	case FailureLocal:
		return "local-io"
	case FailureCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown[%d]", k)
	}
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

func transientErr(err error) *TransferError {
	return &TransferError{Kind: FailureTransient, Err: err}
}

func permanentErr(err error) *TransferError {
	return &TransferError{Kind: FailurePermanent, Err: err}
}

func localErr(err error) *TransferError {
	return &TransferError{Kind: FailureLocal, Err: err}
}

func cancelledErr(err error) *TransferError {
	return &TransferError{Kind: FailureCancelled, Err: err}
}

// asTransferError normalises any error into a TransferError, treating
// unclassified errors as transient (the conservative choice - they
// will still escalate once retries are exhausted).
func asTransferError(err error) *TransferError {
	var terr *TransferError
	if errors.As(err, &terr) {
		return terr
	}

	return transientErr(err)
}

// DefaultRetryPolicy mirrors the defaults the upstream host tolerates
// well: three attempts with a doubling one-second base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:         3,
		InitialDelay:        time.Second,
		Multiplier:          2,
		MaxDelay:            30 * time.Second,
		RandomizationFactor: 0.5,
	}
}

// NewBackOff materialises the policy as a backoff source. Each task
// attempt sequence gets a fresh one so retry spacing never leaks
// between tasks.
func (p RetryPolicy) NewBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxDelay
	b.RandomizationFactor = p.RandomizationFactor
	b.MaxElapsedTime = 0
	b.Reset()

	return b
}

// retryable reports whether the status code is a transient server
// condition. Everything else in the 4xx range is permanent.
func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}
