package provider

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"emergence/internal/randutil"
)

// Result carries the optional gains of one consultation.
type Result struct {
	ProviderID     string
	Success        bool
	CapabilityGain float64
	InsightGain    float64
}

// Provider is a consultable external source. Implementations must be
// synchronous; a failed consultation is a Result, errors are reserved for
// cancellation and misconfiguration.
type Provider interface {
	Call(ctx context.Context, id string) (Result, error)
}

// Stub draws results from a seeded source without any I/O. Latency, when
// set, is a cooperative delay that honors ctx.
type Stub struct {
	rng         *rand.Rand
	successRate float64
	maxGain     float64
	latency     time.Duration
	ids         map[string]struct{}
}

type StubConfig struct {
	Seed        int64
	SuccessRate float64
	MaxGain     float64
	Latency     time.Duration
	// IDs restricts Call to known provider ids; empty accepts any id.
	IDs []string
}

func NewStub(cfg StubConfig) (*Stub, error) {
	if cfg.SuccessRate < 0 || cfg.SuccessRate > 1 {
		return nil, fmt.Errorf("success rate must be in [0, 1]")
	}
	if cfg.MaxGain < 0 {
		return nil, fmt.Errorf("max gain must be >= 0")
	}
	if cfg.MaxGain == 0 {
		cfg.MaxGain = 0.05
	}
	s := &Stub{
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		successRate: cfg.SuccessRate,
		maxGain:     cfg.MaxGain,
		latency:     cfg.Latency,
	}
	if len(cfg.IDs) > 0 {
		s.ids = make(map[string]struct{}, len(cfg.IDs))
		for _, id := range cfg.IDs {
			s.ids[id] = struct{}{}
		}
	}
	return s, nil
}

func (s *Stub) Call(ctx context.Context, id string) (Result, error) {
	if s.ids != nil {
		if _, ok := s.ids[id]; !ok {
			return Result{}, fmt.Errorf("unknown provider: %s", id)
		}
	}
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{ProviderID: id}
	if !randutil.Bernoulli(s.rng, s.successRate) {
		return res, nil
	}
	res.Success = true
	res.CapabilityGain = randutil.UniformFloat(s.rng, 0, s.maxGain)
	res.InsightGain = randutil.UniformFloat(s.rng, 0, s.maxGain)
	return res, nil
}
