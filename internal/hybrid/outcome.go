package hybrid

import (
	"context"
	"time"

	"routeopt/internal/apperror"
	"routeopt/internal/model"
	"routeopt/internal/opt"
)

// Outcome is the tagged result of one tier: either a route (Err == nil and
// not Skipped) or the reason the chain moved on.
type Outcome struct {
	Tier    model.Strategy
	Route   model.RouteResult
	Err     error
	Skipped bool
	// Key labels skips for metrics; failures are labelled by error code.
	Key     string
	Elapsed time.Duration
	Solve   *opt.SolveStats
}

func ok(tier model.Strategy, r model.RouteResult) Outcome {
	return Outcome{Tier: tier, Route: r}
}

func skip(tier model.Strategy, key string, err error) Outcome {
	return Outcome{Tier: tier, Err: err, Skipped: true, Key: key}
}

func fail(tier model.Strategy, err error) Outcome {
	return Outcome{Tier: tier, Err: err}
}

func (o Outcome) OK() bool { return o.Err == nil && !o.Skipped }

func (o Outcome) Reason() string { return apperror.ReasonOf(o.Err) }

func (o Outcome) label() string {
	switch {
	case o.OK():
		return string(model.OutcomeOK)
	case o.Skipped:
		return string(model.OutcomeSkipped)
	default:
		return string(model.OutcomeFailed)
	}
}

func (o Outcome) reasonKey() string {
	if o.Skipped {
		return o.Key
	}
	return string(apperror.CodeOf(o.Err))
}

func (o Outcome) attempt() model.TierAttempt {
	return model.TierAttempt{
		Tier:       o.Tier,
		Outcome:    model.TierOutcome(o.label()),
		Reason:     o.Reason(),
		DurationMs: o.Elapsed.Milliseconds(),
	}
}

// step runs one tier.
type step func(ctx context.Context) Outcome

// chain runs steps in order and stops at the first OK outcome. It returns
// every outcome produced; the last one is the winner when any succeeded.
func chain(ctx context.Context, steps []step, observe func(Outcome)) []Outcome {
	outs := make([]Outcome, 0, len(steps))
	for _, run := range steps {
		start := time.Now()
		o := run(ctx)
		if !o.Skipped {
			o.Elapsed = time.Since(start)
		}
		outs = append(outs, o)
		if observe != nil {
			observe(o)
		}
		if o.OK() {
			break
		}
	}
	return outs
}
