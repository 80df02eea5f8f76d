package fetch

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failing() (int, error) { return 0, errBoom }
func ok() (int, error)      { return 42, nil }

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(3, time.Hour)

	for i := 0; i < 3; i++ {
		_, err := Do(b, failing)
		assert.ErrorIs(t, err, errBoom)
	}

	_, err := Do(b, ok)
	assert.ErrorIs(t, err, ErrUpstreamDown)
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := NewBreaker(3, time.Hour)

	_, _ = Do(b, failing)
	_, _ = Do(b, failing)
	v, err := Do(b, ok)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	// Two more failures stay under the threshold again.
	_, _ = Do(b, failing)
	_, _ = Do(b, failing)
	_, err = Do(b, ok)
	assert.NoError(t, err)
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)

	_, err := Do(b, failing)
	require.ErrorIs(t, err, errBoom)
	_, err = Do(b, ok)
	require.ErrorIs(t, err, ErrUpstreamDown)

	time.Sleep(20 * time.Millisecond)

	v, err := Do(b, ok)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	// Closed again.
	_, err = Do(b, ok)
	assert.NoError(t, err)
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)

	_, _ = Do(b, failing)
	time.Sleep(20 * time.Millisecond)

	_, err := Do(b, failing)
	require.ErrorIs(t, err, errBoom)

	_, err = Do(b, ok)
	assert.ErrorIs(t, err, ErrUpstreamDown)
}
