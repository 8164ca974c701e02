package app

import (
	"log/slog"
	"time"

	"github.com/cimillas/furniture-backoffice/internal/domain"
)

const defaultGatewayTimeout = 3 * time.Second

type settings struct {
	policy         domain.TransitionPolicy
	depositCap     bool
	gatewayTimeout time.Duration
	outbox         Outbox
	recorder       Recorder
	logger         *slog.Logger
}

func defaultSettings() settings {
	return settings{
		policy:         domain.LenientPolicy{},
		gatewayTimeout: defaultGatewayTimeout,
		outbox:         noopOutbox{},
		recorder:       noopRecorder{},
		logger:         slog.Default(),
	}
}

// Option configures the order and survey services.
type Option func(*settings)

// WithTransitionPolicy overrides the default lenient transition policy.
func WithTransitionPolicy(p domain.TransitionPolicy) Option {
	return func(s *settings) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithDepositCap rejects deposits larger than the order total.
func WithDepositCap() Option {
	return func(s *settings) {
		s.depositCap = true
	}
}

// WithGatewayTimeout bounds each directory/catalog lookup.
func WithGatewayTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.gatewayTimeout = d
		}
	}
}

func WithOutbox(o Outbox) Option {
	return func(s *settings) {
		if o != nil {
			s.outbox = o
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *settings) {
		if r != nil {
			s.recorder = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
