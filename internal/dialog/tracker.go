// Package dialog tracks multi-step prompts awaiting user input, one per
// (chat, user) pair.
package dialog

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Key identifies the owner of a pending prompt. Two users in the same group
// chat hold independent entries.
type Key struct {
	ChatID int64
	UserID int64
}

// Step names what a pending prompt is waiting for.
type Step int

const (
	StepApartment Step = iota + 1
	StepResidentName
	StepPhoneNumber
)

func (s Step) String() string {
	switch s {
	case StepApartment:
		return "apartment"
	case StepResidentName:
		return "resident_name"
	case StepPhoneNumber:
		return "phone_number"
	default:
		return "unknown"
	}
}

// Outcome labels reported to Metrics.
const (
	OutcomeCompleted = "completed"
	OutcomeCanceled  = "canceled"
	OutcomeInvalid   = "invalid"
	OutcomeExpired   = "expired"
)

// Prompt is one armed dialog step. Callbacks run without the tracker lock
// held, so OnValid may Ask the next step of a chain.
type Prompt struct {
	Step Step
	// Validate rejects input that must be re-entered. Nil accepts anything.
	Validate func(input string) error
	OnValid  func(ctx context.Context, input string)
	// OnInvalid re-prompts; the step stays armed.
	OnInvalid func(ctx context.Context, err error)
	OnCancel  func(ctx context.Context)
}

// Metrics receives tracker gauges and outcome counts.
type Metrics interface {
	SetPendingDialogs(n int)
	DialogOutcome(outcome string)
}

type entry struct {
	prompt Prompt
	seen   time.Time
}

// Tracker holds at most one pending prompt per Key. It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	pending map[Key]*entry

	cancel  string
	ack     func(ctx context.Context, key Key)
	timeout time.Duration
	now     func() time.Time
	metrics Metrics
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithCancelAck sets the acknowledgement sent when a user cancels.
func WithCancelAck(fn func(ctx context.Context, key Key)) Option {
	return func(t *Tracker) { t.ack = fn }
}

// WithTimeout sets the idle time after which Expire drops an entry. Zero
// disables expiry.
func WithTimeout(d time.Duration) Option { return func(t *Tracker) { t.timeout = d } }

// WithMetrics reports pending counts and outcomes.
func WithMetrics(m Metrics) Option { return func(t *Tracker) { t.metrics = m } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(t *Tracker) { t.now = now } }

// NewTracker returns an empty tracker. Input equal to cancel aborts any step.
func NewTracker(cancel string, opts ...Option) *Tracker {
	t := &Tracker{
		pending: make(map[Key]*entry),
		cancel:  cancel,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Ask arms p for key, replacing any prompt already pending there.
func (t *Tracker) Ask(key Key, p Prompt) {
	t.mu.Lock()
	t.pending[key] = &entry{prompt: p, seen: t.now()}
	n := len(t.pending)
	t.mu.Unlock()
	t.gauge(n)
}

// Dispatch feeds input to the prompt pending for key. It reports false when
// nothing is pending, leaving the input to normal command routing.
func (t *Tracker) Dispatch(ctx context.Context, key Key, input string) bool {
	t.mu.Lock()
	e, ok := t.pending[key]
	if !ok {
		t.mu.Unlock()
		return false
	}
	p := e.prompt

	if input == t.cancel {
		delete(t.pending, key)
		n := len(t.pending)
		t.mu.Unlock()
		t.gauge(n)
		t.outcome(OutcomeCanceled)
		if t.ack != nil {
			t.ack(ctx, key)
		}
		if p.OnCancel != nil {
			p.OnCancel(ctx)
		}
		return true
	}

	if p.Validate != nil {
		if err := p.Validate(input); err != nil {
			e.seen = t.now()
			t.mu.Unlock()
			t.outcome(OutcomeInvalid)
			if p.OnInvalid != nil {
				p.OnInvalid(ctx, err)
			}
			return true
		}
	}

	delete(t.pending, key)
	n := len(t.pending)
	t.mu.Unlock()
	t.gauge(n)
	t.outcome(OutcomeCompleted)
	if p.OnValid != nil {
		p.OnValid(ctx, input)
	}
	return true
}

// Pending reports the step armed for key.
func (t *Tracker) Pending(key Key) (Step, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.pending[key]
	if !ok {
		return 0, false
	}
	return e.prompt.Step, true
}

// Drop removes the entry for key without running any callback.
func (t *Tracker) Drop(key Key) bool {
	t.mu.Lock()
	_, ok := t.pending[key]
	delete(t.pending, key)
	n := len(t.pending)
	t.mu.Unlock()
	if ok {
		t.gauge(n)
	}
	return ok
}

// Len returns the number of pending prompts.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Expire drops entries idle for longer than the configured timeout as of now
// and returns their keys. Callbacks of expired prompts do not run.
func (t *Tracker) Expire(now time.Time) []Key {
	if t.timeout <= 0 {
		return nil
	}
	cutoff := now.Add(-t.timeout)
	t.mu.Lock()
	var expired []Key
	for key, e := range t.pending {
		if e.seen.Before(cutoff) {
			expired = append(expired, key)
			delete(t.pending, key)
		}
	}
	n := len(t.pending)
	t.mu.Unlock()
	if len(expired) > 0 {
		t.gauge(n)
		for range expired {
			t.outcome(OutcomeExpired)
		}
	}
	return expired
}

// Schedule registers a sweep on c that expires idle entries and passes each
// expired key to notify.
func (t *Tracker) Schedule(c *cron.Cron, spec string, notify func(Key)) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		for _, key := range t.Expire(t.now()) {
			if notify != nil {
				notify(key)
			}
		}
	})
}

func (t *Tracker) gauge(n int) {
	if t.metrics != nil {
		t.metrics.SetPendingDialogs(n)
	}
}

func (t *Tracker) outcome(o string) {
	if t.metrics != nil {
		t.metrics.DialogOutcome(o)
	}
}
