package distribution

import (
	"context"
	"math/rand/v2"

	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RunContext carries the run-scoped collaborators handed to every stage
type RunContext struct {
	Ctx     context.Context
	Rng     *rand.Rand
	Logger  *zap.Logger
	Metrics Metrics
	Tracer  trace.Tracer

	seed uint64
}

// forStage returns a context whose rng is derived from the run seed and the stage name,
// so a stage draws the same sequence whatever earlier stages consumed.
func (rc *RunContext) forStage(state State) *RunContext {
	derived := xxh3.HashStringSeed(state.String(), rc.seed)
	out := *rc
	out.Rng = rand.New(rand.NewPCG(rc.seed, derived))
	out.Logger = rc.Logger.With(zap.String("stage", state.String()))
	return &out
}

// jitter returns a multiplier in [1-amount, 1+amount]
func (rc *RunContext) jitter(amount float64) float64 {
	if amount <= 0 {
		return 1
	}
	return 1 + (rc.Rng.Float64()*2-1)*amount
}

// shuffle reorders s in place
func shuffle[T any](rc *RunContext, s []T) {
	rc.Rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}
