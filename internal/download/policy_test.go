package download

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "transient", FailureTransient.String())
	assert.Equal(t, "permanent", FailurePermanent.String())
	assert.Equal(t, "local-io", FailureLocal.String())
	assert.Equal(t, "cancelled", FailureCancelled.String())
}

func TestTransferError_WrapsItsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	terr := transientErr(fmt.Errorf("GET failed: %w", cause))

	assert.Equal(t, "transient: GET failed: connection reset", terr.Error())
	assert.True(t, errors.Is(terr, cause))
}

func TestAsTransferError(t *testing.T) {
	t.Parallel()

	permanent := permanentErr(errors.New("404"))
	assert.Same(t, permanent, asTransferError(fmt.Errorf("attempt failed: %w", permanent)),
		"an existing classification must survive wrapping")

	unclassified := asTransferError(errors.New("something went sideways"))
	assert.Equal(t, FailureTransient, unclassified.Kind, "unclassified errors default to transient")
}

func TestRetryableStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code      int
		retryable bool
	}{
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{410, false},
	}

	for _, test := range tests {
		assert.Equal(t, test.retryable, retryableStatus(test.code), "status %d", test.code)
	}
}

func TestNewBackOff_DelaysGrowAndRespectTheCap(t *testing.T) {
	t.Parallel()

	policy := RetryPolicy{
		MaxAttempts:         5,
		InitialDelay:        10 * time.Millisecond,
		Multiplier:          2,
		MaxDelay:            25 * time.Millisecond,
		RandomizationFactor: 0,
	}

	bo := policy.NewBackOff()
	var delays []time.Duration
	for i := 0; i < 4; i++ {
		delay := bo.NextBackOff()
		require.NotEqual(t, backoff.Stop, delay)
		delays = append(delays, delay)
	}

	assert.Equal(t, 10*time.Millisecond, delays[0])
	assert.Equal(t, 20*time.Millisecond, delays[1])
	for i := 1; i < len(delays); i++ {
		assert.GreaterOrEqual(t, delays[i], delays[i-1], "retry spacing must never shrink")
	}
	for _, delay := range delays {
		assert.LessOrEqual(t, delay, policy.MaxDelay)
	}
}

func TestNewBackOff_SequencesAreIndependent(t *testing.T) {
	t.Parallel()

	policy := DefaultRetryPolicy()
	policy.RandomizationFactor = 0

	first := policy.NewBackOff()
	first.NextBackOff()
	first.NextBackOff()

	second := policy.NewBackOff()
	assert.Equal(t, policy.InitialDelay, second.NextBackOff(),
		"one task's retries must not inflate another's starting delay")
}

func TestDefaultRetryPolicy(t *testing.T) {
	t.Parallel()

	policy := DefaultRetryPolicy()
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, time.Second, policy.InitialDelay)
	assert.Equal(t, 30*time.Second, policy.MaxDelay)
}
