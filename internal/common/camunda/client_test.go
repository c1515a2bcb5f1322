// internal/common/camunda/client_test.go
package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/config"
)

func fastRetry(max int) *RetryConfig {
	return &RetryConfig{MaxRetries: max, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"read: connection reset by peer", true},
		{"i/o timeout", true},
		{"rpc error: code = NotFound desc = job not found", false},
		{"permission denied", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableZeebeError(stderrors.New(tt.msg)))
		})
	}
}

func TestBackoff(t *testing.T) {
	rc := &RetryConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, backoff(rc, 0))
	assert.Equal(t, 2*time.Second, backoff(rc, 1))
	assert.Equal(t, 4*time.Second, backoff(rc, 2))
	assert.Equal(t, 5*time.Second, backoff(rc, 3))
	assert.Equal(t, 5*time.Second, backoff(rc, 62))
}

func TestRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		var retried []int
		err := retry(context.Background(), fastRetry(3), "topology", func(context.Context) error {
			calls++
			if calls < 3 {
				return stderrors.New("connection refused")
			}
			return nil
		}, func(attempt int, _ time.Duration, _ error) {
			retried = append(retried, attempt)
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []int{1, 2}, retried)
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		calls := 0
		err := retry(context.Background(), fastRetry(3), "topology", func(context.Context) error {
			calls++
			return stderrors.New("permission denied")
		}, nil)

		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.Contains(t, err.Error(), "permission denied")
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := retry(context.Background(), fastRetry(2), "topology", func(context.Context) error {
			calls++
			return stderrors.New("unavailable")
		}, nil)

		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		rc := &RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
		err := retry(ctx, rc, "topology", func(context.Context) error {
			return stderrors.New("unavailable")
		}, nil)

		require.Error(t, err)
		assert.True(t, stderrors.Is(err, context.Canceled))
	})
}

func TestConfigFrom(t *testing.T) {
	cc := ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", RequestTimeout: 2500})
	assert.Equal(t, "zeebe:26500", cc.GatewayAddress)
	assert.True(t, cc.UsePlaintextConnection)
	assert.Equal(t, 2500*time.Millisecond, cc.ConnectionTimeout)

	cc = ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500"})
	assert.Equal(t, 10*time.Second, cc.ConnectionTimeout)
}

func TestWorkerOptions(t *testing.T) {
	opts := WorkerOptionsFrom("recommend", config.CamundaConfig{MaxJobsActive: 8, Concurrency: 2, Timeout: 5000})
	assert.Equal(t, WorkerOptions{Name: "recommend", MaxJobsActive: 8, Concurrency: 2, Timeout: 5 * time.Second}, opts)

	defaults := WorkerOptions{}.withDefaults()
	assert.Equal(t, 32, defaults.MaxJobsActive)
	assert.Equal(t, 4, defaults.Concurrency)
	assert.Equal(t, 30*time.Second, defaults.Timeout)
}
