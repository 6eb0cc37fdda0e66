package dispatch

import (
	"log/slog"
	"time"
)

// config holds orchestrator tunables. Defaults match the timing contract
// the engine was built against: 5 connection attempts 3s apart, a 30x1s
// delivery-confirmation poll, and a 2s pause between retry passes.
type config struct {
	logger          *slog.Logger
	connectAttempts int
	connectBackoff  time.Duration
	confirmAttempts int
	confirmInterval time.Duration
	retryPassDelay  time.Duration
}

func defaultConfig() *config {
	return &config{
		logger:          slog.Default(),
		connectAttempts: 5,
		connectBackoff:  3 * time.Second,
		confirmAttempts: 30,
		confirmInterval: time.Second,
		retryPassDelay:  2 * time.Second,
	}
}

// Option configures the orchestrator.
type Option func(*config)

// WithLogger sets the structured logger used for worker-side logging
// (event sink Log lines are emitted regardless).
func WithLogger(log *slog.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.logger = log
		}
	}
}

// WithConnectPolicy overrides the transport connection retry policy.
func WithConnectPolicy(attempts int, backoff time.Duration) Option {
	return func(c *config) {
		if attempts > 0 {
			c.connectAttempts = attempts
		}
		if backoff >= 0 {
			c.connectBackoff = backoff
		}
	}
}

// WithConfirmPolicy overrides the per-message delivery-confirmation poll.
func WithConfirmPolicy(attempts int, interval time.Duration) Option {
	return func(c *config) {
		if attempts >= 0 {
			c.confirmAttempts = attempts
		}
		if interval >= 0 {
			c.confirmInterval = interval
		}
	}
}

// WithRetryPassDelay overrides the pause between retry passes.
func WithRetryPassDelay(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.retryPassDelay = d
		}
	}
}
