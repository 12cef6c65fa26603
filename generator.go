// Package idtheory generates 128-bit time-based identifiers: RFC 9562 UUID
// versions 1, 6 and 7, ULIDs, and version-4 prefix COMBs.
//
// A Generator is safe for concurrent use. For the time-ordered schemes every
// identifier it returns is strictly greater than the previous one, including
// when many calls share a clock tick or the wall clock steps back by less
// than the drift tolerance.
package idtheory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/theory-cloud/idtheory/pkg/clock"
	"github.com/theory-cloud/idtheory/pkg/entropy"
	"github.com/theory-cloud/idtheory/pkg/identifier"
	"github.com/theory-cloud/idtheory/pkg/layout"
	"github.com/theory-cloud/idtheory/pkg/logger"
	"github.com/theory-cloud/idtheory/pkg/node"
	"github.com/theory-cloud/idtheory/pkg/observability"
	"github.com/theory-cloud/idtheory/pkg/state"
)

// Option configures a Generator.
type Option func(*options)

type options struct {
	clock     clock.Clock
	source    entropy.Source
	nodes     node.Provider
	policy    state.IncrementPolicy
	tolerance uint64
	logger    observability.StructuredLogger
	name      string
}

// WithClock sets the time source. Defaults to clock.RealClock.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithEntropy sets the random source. Defaults to entropy.Crypto.
func WithEntropy(src entropy.Source) Option {
	return func(o *options) { o.source = src }
}

// WithNodeProvider sets the node identifier of the v1 and v6 schemes.
// Defaults to a random multicast identifier drawn once at construction.
func WithNodeProvider(p node.Provider) Option {
	return func(o *options) { o.nodes = p }
}

// WithPolicy sets how the tail grows within a tick. Defaults to
// state.AddFixed. Ignored by v1 and v6.
func WithPolicy(p state.IncrementPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithDriftTolerance sets the backward clock step, in timestamp units, that
// is absorbed by incrementing instead of resetting. Ignored by v1 and v6.
func WithDriftTolerance(units uint64) Option {
	return func(o *options) { o.tolerance = units }
}

// WithLogger sets the logger. Defaults to the process-wide logger.Logger().
func WithLogger(l observability.StructuredLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithName labels the generator in log entries.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Generator produces identifiers for one scheme.
type Generator struct {
	scheme layout.Scheme
	clock  clock.Clock
	nodes  node.Provider
	log    observability.StructuredLogger

	// mu guards the clock read and the state transition together.
	mu      sync.Mutex
	classic *state.Classic
	mono    *state.Monotonic
}

// New builds a Generator for scheme.
func New(scheme layout.Scheme, opts ...Option) (*Generator, error) {
	if !scheme.Valid() {
		return nil, WrapError(layout.ErrUnknownScheme, ErrorTypeInvalidConfig, fmt.Sprintf("scheme %d", scheme))
	}

	o := options{
		policy:    state.AddFixed(),
		tolerance: state.DefaultDriftTolerance,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.clock == nil {
		o.clock = clock.RealClock{}
	}
	if o.source == nil {
		o.source = entropy.Crypto()
	}
	if o.logger == nil {
		o.logger = logger.Logger()
	}

	log := o.logger.WithScheme(scheme.String())
	if o.name != "" {
		log = log.WithGenerator(o.name)
	}

	g := &Generator{
		scheme: scheme,
		clock:  o.clock,
		log:    log,
	}

	if scheme.Classic() {
		if err := g.initClassic(o); err != nil {
			return nil, err
		}
		g.log.Debug("generator ready")
		return g, nil
	}

	mono, err := state.NewMonotonic(state.MonotonicConfig{
		TailBits:     scheme.TailBits(),
		MaxTimestamp: scheme.MaxTimestamp(),
		Policy:       o.policy,
		Tolerance:    o.tolerance,
	}, o.source)
	if err != nil {
		if errors.Is(err, state.ErrInvalidPolicy) || errors.Is(err, state.ErrInvalidWidth) {
			return nil, WrapError(err, ErrorTypeInvalidConfig, "invalid generator configuration")
		}
		return nil, err
	}
	g.mono = mono

	g.log.Debug("generator ready", map[string]any{
		"policy":          o.policy.String(),
		"drift_tolerance": o.tolerance,
	})
	return g, nil
}

func (g *Generator) initClassic(o options) error {
	g.nodes = o.nodes
	if g.nodes == nil {
		random, err := node.NewRandom(o.source)
		if err != nil {
			return err
		}
		g.nodes = random
	}

	classic, err := state.NewClassic(o.source)
	if err != nil {
		return err
	}
	g.classic = classic
	return nil
}

// Scheme returns the scheme the generator produces.
func (g *Generator) Scheme() layout.Scheme { return g.scheme }

// Next returns a new identifier.
//
// For the monotonic schemes an error satisfying IsTailExhausted means the
// current tick has no increments left within the drift tolerance; the
// generator state is unchanged and a later call succeeds once the clock
// advances.
func (g *Generator) Next() (identifier.ID, error) {
	if g.classic != nil {
		return g.nextClassic()
	}
	return g.nextMonotonic()
}

// MustNext is like Next but panics on error.
func (g *Generator) MustNext() identifier.ID {
	id, err := g.Next()
	if err != nil {
		panic(err)
	}
	return id
}

func (g *Generator) nextClassic() (identifier.ID, error) {
	n, err := g.nodes.Node()
	if err != nil {
		return identifier.Nil, err
	}

	g.mu.Lock()
	tick, err := g.classic.Advance(g.scheme.Observe(g.clock.Now()), n)
	g.mu.Unlock()
	if err != nil {
		return identifier.Nil, err
	}

	if tick.Branch == state.BranchReseed {
		g.log.Debug("clock sequence reseeded after node change", map[string]any{"node": n})
	}
	return layout.Format(g.scheme, tick.Timestamp, layout.ClassicTail(tick.ClockSequence, n)), nil
}

func (g *Generator) nextMonotonic() (identifier.ID, error) {
	g.mu.Lock()
	tick, err := g.mono.Advance(g.scheme.Observe(g.clock.Now()))
	g.mu.Unlock()
	if err != nil {
		if errors.Is(err, state.ErrTailExhausted) {
			return identifier.Nil, WrapError(err, ErrorTypeTailExhausted, "no identifiers left in the current tick")
		}
		return identifier.Nil, err
	}

	if tick.Branch == state.BranchReset && tick.Lag > 0 {
		g.log.Warn("clock regressed beyond drift tolerance, tail reset", map[string]any{
			"lag":       tick.Lag,
			"timestamp": tick.Timestamp,
		})
	}
	return layout.Format(g.scheme, tick.Timestamp, tick.Tail), nil
}
