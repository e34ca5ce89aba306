package dialog

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/robfig/cron/v3"
)

const cancelLabel = "Cancel"

type countingMetrics struct {
	pending  int
	outcomes map[string]int
}

func (m *countingMetrics) SetPendingDialogs(n int) { m.pending = n }
func (m *countingMetrics) DialogOutcome(o string) {
	if m.outcomes == nil {
		m.outcomes = make(map[string]int)
	}
	m.outcomes[o]++
}

func numeric(input string) error {
	_, err := strconv.Atoi(input)
	return err
}

func TestDispatchWithoutPendingIsNotHandled(t *testing.T) {
	tr := NewTracker(cancelLabel)
	if tr.Dispatch(context.Background(), Key{ChatID: 1, UserID: 1}, "301") {
		t.Fatal("expected unhandled input")
	}
}

func TestValidInputCompletesStep(t *testing.T) {
	m := &countingMetrics{}
	tr := NewTracker(cancelLabel, WithMetrics(m))
	key := Key{ChatID: 10, UserID: 7}
	var got string
	tr.Ask(key, Prompt{Step: StepApartment, Validate: numeric, OnValid: func(_ context.Context, in string) { got = in }})
	if step, ok := tr.Pending(key); !ok || step != StepApartment {
		t.Fatalf("expected apartment step pending, got %v %v", step, ok)
	}
	if m.pending != 1 {
		t.Fatalf("expected gauge 1, got %d", m.pending)
	}
	if !tr.Dispatch(context.Background(), key, "301") {
		t.Fatal("expected input to be handled")
	}
	if got != "301" {
		t.Fatalf("unexpected input %q", got)
	}
	if _, ok := tr.Pending(key); ok || tr.Len() != 0 || m.pending != 0 {
		t.Fatal("entry must be removed after valid input")
	}
	if m.outcomes[OutcomeCompleted] != 1 {
		t.Fatalf("unexpected outcomes %v", m.outcomes)
	}
}

func TestInvalidInputKeepsStepArmed(t *testing.T) {
	tr := NewTracker(cancelLabel)
	key := Key{ChatID: 10, UserID: 7}
	var reprompts int
	var got string
	tr.Ask(key, Prompt{
		Step:      StepApartment,
		Validate:  numeric,
		OnValid:   func(_ context.Context, in string) { got = in },
		OnInvalid: func(context.Context, error) { reprompts++ },
	})
	tr.Dispatch(context.Background(), key, "abc")
	tr.Dispatch(context.Background(), key, "3o1")
	if reprompts != 2 {
		t.Fatalf("expected 2 re-prompts, got %d", reprompts)
	}
	if _, ok := tr.Pending(key); !ok {
		t.Fatal("step must stay armed after invalid input")
	}
	tr.Dispatch(context.Background(), key, "301")
	if got != "301" {
		t.Fatalf("expected the same handler to accept later input, got %q", got)
	}
}

func TestCancelAcknowledgesThenRunsOnCancel(t *testing.T) {
	var events []string
	tr := NewTracker(cancelLabel, WithCancelAck(func(_ context.Context, key Key) {
		events = append(events, "ack")
	}))
	key := Key{ChatID: 1, UserID: 2}
	tr.Ask(key, Prompt{
		Step:     StepResidentName,
		OnValid:  func(context.Context, string) { events = append(events, "valid") },
		OnCancel: func(context.Context) { events = append(events, "cancel") },
	})
	if !tr.Dispatch(context.Background(), key, cancelLabel) {
		t.Fatal("cancel must be handled")
	}
	if diff := cmp.Diff([]string{"ack", "cancel"}, events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if tr.Len() != 0 {
		t.Fatal("cancel must remove the entry")
	}
	if tr.Dispatch(context.Background(), key, "anything") {
		t.Fatal("after cancel the pair must be idle")
	}
}

func TestSendersInSameChatDoNotCrossTalk(t *testing.T) {
	tr := NewTracker(cancelLabel)
	alice := Key{ChatID: -100, UserID: 1}
	bob := Key{ChatID: -100, UserID: 2}
	var got string
	tr.Ask(alice, Prompt{Step: StepApartment, OnValid: func(_ context.Context, in string) { got = in }})
	if tr.Dispatch(context.Background(), bob, "999") {
		t.Fatal("another sender must not reach the pending prompt")
	}
	if got != "" {
		t.Fatal("handler must not run for another sender")
	}
	if !tr.Dispatch(context.Background(), alice, "301") || got != "301" {
		t.Fatalf("owner input not delivered, got %q", got)
	}
}

func TestChainedPromptsKeepOneEntry(t *testing.T) {
	tr := NewTracker(cancelLabel)
	key := Key{ChatID: 5, UserID: 5}
	var apartment, name string
	tr.Ask(key, Prompt{
		Step:     StepApartment,
		Validate: numeric,
		OnValid: func(_ context.Context, in string) {
			apartment = in
			tr.Ask(key, Prompt{Step: StepResidentName, OnValid: func(_ context.Context, in string) { name = in }})
		},
	})
	tr.Dispatch(context.Background(), key, "301")
	if step, _ := tr.Pending(key); step != StepResidentName || tr.Len() != 1 {
		t.Fatalf("expected only the name step pending, got %v (len %d)", step, tr.Len())
	}
	tr.Dispatch(context.Background(), key, "alice")
	if apartment != "301" || name != "alice" || tr.Len() != 0 {
		t.Fatalf("chain not completed: %q %q len=%d", apartment, name, tr.Len())
	}
}

func TestAskReplacesPendingPrompt(t *testing.T) {
	tr := NewTracker(cancelLabel)
	key := Key{ChatID: 1, UserID: 1}
	var first, second bool
	tr.Ask(key, Prompt{Step: StepApartment, OnValid: func(context.Context, string) { first = true }})
	tr.Ask(key, Prompt{Step: StepPhoneNumber, OnValid: func(context.Context, string) { second = true }})
	tr.Dispatch(context.Background(), key, "+123456")
	if first || !second {
		t.Fatalf("expected only the replacement to run, first=%v second=%v", first, second)
	}
}

func TestExpireDropsIdleEntries(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := &countingMetrics{}
	tr := NewTracker(cancelLabel, WithTimeout(15*time.Minute), WithClock(clock), WithMetrics(m))

	stale := Key{ChatID: 1, UserID: 1}
	fresh := Key{ChatID: 2, UserID: 2}
	tr.Ask(stale, Prompt{Step: StepApartment, Validate: numeric})
	now = now.Add(10 * time.Minute)
	tr.Ask(fresh, Prompt{Step: StepApartment, Validate: numeric})

	now = now.Add(6 * time.Minute)
	if diff := cmp.Diff([]Key{stale}, tr.Expire(now)); diff != "" {
		t.Fatalf("expired mismatch (-want +got):\n%s", diff)
	}
	if _, ok := tr.Pending(fresh); !ok {
		t.Fatal("fresh entry must survive")
	}

	// invalid input counts as activity
	now = now.Add(8 * time.Minute)
	tr.Dispatch(context.Background(), fresh, "x")
	now = now.Add(10 * time.Minute)
	if got := tr.Expire(now); len(got) != 0 {
		t.Fatalf("expected nothing expired, got %v", got)
	}
	if m.outcomes[OutcomeExpired] != 1 || m.pending != 1 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestExpireDisabledWithoutTimeout(t *testing.T) {
	tr := NewTracker(cancelLabel)
	tr.Ask(Key{ChatID: 1, UserID: 1}, Prompt{Step: StepApartment})
	if got := tr.Expire(time.Now().Add(24 * time.Hour)); got != nil {
		t.Fatalf("expected no expiry, got %v", got)
	}
}

func TestScheduleNotifiesExpiredKeys(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(cancelLabel, WithTimeout(time.Minute), WithClock(func() time.Time { return now }))
	key := Key{ChatID: 3, UserID: 4}
	tr.Ask(key, Prompt{Step: StepPhoneNumber})
	now = now.Add(2 * time.Minute)

	c := cron.New()
	var notified []Key
	id, err := tr.Schedule(c, "@every 1m", func(k Key) { notified = append(notified, k) })
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	c.Entry(id).Job.Run()
	if diff := cmp.Diff([]Key{key}, notified); diff != "" {
		t.Fatalf("notified mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrentDispatch(t *testing.T) {
	tr := NewTracker(cancelLabel)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0
	for i := 0; i < 50; i++ {
		key := Key{ChatID: 1, UserID: int64(i)}
		tr.Ask(key, Prompt{Step: StepApartment, OnValid: func(context.Context, string) {
			mu.Lock()
			done++
			mu.Unlock()
		}})
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Dispatch(context.Background(), key, "1")
		}()
	}
	wg.Wait()
	if done != 50 || tr.Len() != 0 {
		t.Fatalf("expected all prompts completed, done=%d len=%d", done, tr.Len())
	}
}

func TestStepString(t *testing.T) {
	if StepPhoneNumber.String() != "phone_number" || Step(0).String() != "unknown" {
		t.Fatal("unexpected step names")
	}
}
