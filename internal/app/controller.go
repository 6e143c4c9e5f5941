package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shopsmart/internal/generator"
	"shopsmart/internal/history"
	"shopsmart/internal/logger"
	"shopsmart/internal/metrics"
	"shopsmart/internal/shopping"

	"go.uber.org/zap"
)

// Controller owns one user's generation cycle. At most one generation is in
// flight at a time; a Submit while Pending is rejected.
type Controller struct {
	gen      generator.Generator
	history  *history.Store
	recorder metrics.Recorder
	logger   *zap.Logger

	mu     sync.Mutex
	state  State
	input  *shopping.UserInput
	result *shopping.GenerationResult
	errMsg string
	budget float64
	cancel context.CancelFunc
	// seq identifies the current generation; a resolution carrying an older
	// seq was reset and is dropped.
	seq uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecorder records one metric per resolved generation.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = logger.OrNop(l) }
}

// NewController creates an idle controller.
func NewController(gen generator.Generator, store *history.Store, opts ...Option) *Controller {
	c := &Controller{
		gen:     gen,
		history: store,
		logger:  zap.NewNop(),
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit validates in, moves to Pending and runs one generation. On success
// the result becomes current and is saved to history before Submit returns.
// Submit is accepted from every state except Pending.
func (c *Controller) Submit(ctx context.Context, in shopping.UserInput) (*shopping.GenerationResult, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	c.mu.Lock()
	if c.state == StatePending {
		c.mu.Unlock()
		return nil, ErrGenerationInFlight
	}
	captured := in
	captured.Supermarkets = append([]string(nil), in.Supermarkets...)
	c.input = &captured
	c.result = nil
	c.errMsg = ""
	c.budget = in.Budget
	c.state = StatePending
	c.seq++
	seq := c.seq
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	start := time.Now()
	res, err := c.gen.Generate(runCtx, captured)
	latency := time.Since(start)
	cancel()

	c.mu.Lock()
	if c.seq != seq {
		c.mu.Unlock()
		c.logger.Info("discarding generation abandoned by reset", zap.Duration("latency", latency))
		c.record(ctx, captured.Mode, generator.ErrCanceled, 0, latency)
		return nil, ErrReset
	}
	c.cancel = nil
	if err == nil && res == nil {
		err = &generator.Error{Kind: generator.ErrMalformedResponse, Err: errors.New("empty result")}
	}
	if err != nil {
		c.state = StateFailed
		c.errMsg = userMessage(err)
		c.mu.Unlock()
		c.logger.Warn("generation failed", zap.Error(err))
		c.record(ctx, captured.Mode, err, 0, latency)
		return nil, err
	}
	c.state = StateSuccess
	c.result = res
	c.mu.Unlock()

	entry := c.history.Save(ctx, *res, captured.Budget)
	c.logger.Info("generation saved to history",
		zap.String("entry_id", entry.ID),
		zap.Int("items", entry.ItemCount),
		zap.Float64("total_cost", entry.TotalCost),
	)
	c.record(ctx, captured.Mode, nil, len(res.Items), latency)
	return res, nil
}

// Dismiss clears the error message; the state is unchanged.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = ""
}

// Retry returns from Failed to Idle so the form can be submitted again.
func (c *Controller) Retry() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateFailed {
		return fmt.Errorf("%w: retry from %s", ErrInvalidTransition, c.state)
	}
	c.state = StateIdle
	c.errMsg = ""
	return nil
}

// Reset returns to Idle from any state. A pending request is canceled and its
// eventual result is discarded without touching history.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
		c.seq++
	}
	c.state = StateIdle
	c.input = nil
	c.result = nil
	c.errMsg = ""
	c.budget = 0
}

// LoadFromHistory makes a saved result current without a request.
func (c *Controller) LoadFromHistory(ctx context.Context, id string) (*shopping.GenerationResult, error) {
	c.mu.Lock()
	pending := c.state == StatePending
	c.mu.Unlock()
	if pending {
		return nil, ErrGenerationInFlight
	}

	entry, ok := c.history.Get(ctx, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePending {
		return nil, ErrGenerationInFlight
	}
	res := entry.Response
	c.result = &res
	c.budget = entry.Budget
	c.errMsg = ""
	c.state = StateSuccess
	return &res, nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{State: c.state, Error: c.errMsg, Budget: c.budget}
	if c.input != nil {
		in := *c.input
		s.Input = &in
	}
	if c.result != nil {
		res := *c.result
		s.Result = &res
	}
	return s
}

// View derives the grouped presentation of the current result.
func (c *Controller) View() (View, error) {
	snap := c.Snapshot()
	if snap.Result == nil {
		return View{}, ErrNoResult
	}
	res := snap.Result
	return View{
		Groups:     shopping.GroupByStore(res.Items),
		ItemCount:  len(res.Items),
		TotalCost:  res.TotalCost,
		Budget:     snap.Budget,
		BudgetUsed: shopping.BudgetUsed(res.TotalCost, snap.Budget),
		Nutrition:  res.Nutrition(),
		Notes:      res.Notes,
		Menu:       res.Menu,
	}, nil
}

// History lists saved results, newest first.
func (c *Controller) History(ctx context.Context) []history.Entry {
	return c.history.List(ctx)
}

// DeleteHistory removes one saved result.
func (c *Controller) DeleteHistory(ctx context.Context, id string) {
	c.history.Delete(ctx, id)
}

// ClearHistory removes all saved results.
func (c *Controller) ClearHistory(ctx context.Context) {
	c.history.Clear(ctx)
}

// CheckAvailability reports whether the generation service answers.
func (c *Controller) CheckAvailability(ctx context.Context) bool {
	return c.gen.CheckAvailability(ctx)
}

func (c *Controller) record(ctx context.Context, mode shopping.Mode, err error, items int, latency time.Duration) {
	if c.recorder == nil {
		return
	}
	m := metrics.GenerationMetric{
		Mode:    string(mode),
		Outcome: metrics.OutcomeOf(err),
		Items:   items,
		Latency: latency,
	}
	if err := c.recorder.Record(context.WithoutCancel(ctx), m); err != nil {
		c.logger.Warn("failed to record generation metric", zap.Error(err))
	}
}

func userMessage(err error) string {
	var genErr *generator.Error
	if errors.As(err, &genErr) {
		if msg := genErr.Error(); msg != "" {
			return msg
		}
	}
	return fallbackMessage
}
