// Package controller owns the canonical timer state of one owner. It applies
// commands through the pure timerstate machine, advances the countdown from a
// ticker, persists every change and publishes events to observers.
package controller

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"pomodoroplaza/internal/model"
	"pomodoroplaza/internal/notify"
	"pomodoroplaza/internal/timerstate"
)

// Store persists the state snapshot. found is false when nothing was saved yet.
type Store interface {
	Load(ctx context.Context, now time.Time) (state model.State, found bool, err error)
	Save(ctx context.Context, state model.State) error
}

type Options struct {
	Owner        string
	Clock        func() time.Time
	Location     *time.Location
	BreakPolicy  timerstate.BreakPolicy
	TickInterval time.Duration
	Notifier     notify.Notifier
	Logger       *log.Logger
	NewID        func() string
	// DefaultPauseMinutes seeds the break length of a fresh state.
	DefaultPauseMinutes int
	// NotifyBuffer bounds queued notifications; extra ones are dropped.
	NotifyBuffer int
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.BreakPolicy == "" {
		o.BreakPolicy = timerstate.BreakPolicyAuto
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.Notifier == nil {
		o.Notifier = notify.Nop{}
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	if o.DefaultPauseMinutes <= 0 {
		o.DefaultPauseMinutes = model.DefaultPauseMinutes
	}
	if o.NotifyBuffer <= 0 {
		o.NotifyBuffer = 16
	}
	return o
}

func (o Options) defaultState(now time.Time) model.State {
	state := model.DefaultState(now)
	state.GlobalPauseDurationMinutes = o.DefaultPauseMinutes
	return state
}

type Controller struct {
	mu            sync.Mutex
	state         model.State
	store         Store
	options       Options
	events        []chan timerstate.Event
	notifications chan timerstate.Event
	delivered     chan struct{}
	closed        bool
}

type transition func(state model.State, now time.Time) (model.State, []timerstate.Event, error)

// New starts the notification worker; Close stops it.
func New(state model.State, store Store, options Options) *Controller {
	options = options.withDefaults()
	c := &Controller{
		state:         state.Clone(),
		store:         store,
		options:       options,
		notifications: make(chan timerstate.Event, options.NotifyBuffer),
		delivered:     make(chan struct{}),
	}
	go c.deliver()
	return c
}

// Load rehydrates a controller from the store. A missing snapshot starts from
// the default state; an unreadable one is logged and replaced by the default.
func Load(ctx context.Context, store Store, options Options) *Controller {
	options = options.withDefaults()
	now := options.Clock().In(options.Location)

	state, found, err := store.Load(ctx, now)
	switch {
	case err != nil:
		options.Logger.Printf("load timer state for %q: %v; starting from defaults", options.Owner, err)
		state = options.defaultState(now)
	case !found:
		state = options.defaultState(now)
	}
	return New(state, store, options)
}

func (c *Controller) Owner() string {
	return c.options.Owner
}

func (c *Controller) BreakPolicy() timerstate.BreakPolicy {
	return c.options.BreakPolicy
}

// Snapshot returns a copy of the current state after the day rollover check.
func (c *Controller) Snapshot(ctx context.Context) model.State {
	var snapshot model.State
	_ = c.apply(ctx, func(s model.State, _ time.Time) (model.State, []timerstate.Event, error) {
		snapshot = s.Clone()
		return s, nil, nil
	})
	return snapshot
}

func (c *Controller) AddTimer(ctx context.Context, spec model.TimerSpec) model.Timer {
	var added model.Timer
	_ = c.apply(ctx, func(s model.State, _ time.Time) (model.State, []timerstate.Event, error) {
		next, timer, events := timerstate.AddTimer(s, c.options.NewID(), spec)
		added = timer
		return next, events, nil
	})
	return added
}

func (c *Controller) UpdateTimer(ctx context.Context, timer model.Timer) error {
	return c.apply(ctx, func(s model.State, _ time.Time) (model.State, []timerstate.Event, error) {
		return timerstate.UpdateTimer(s, timer)
	})
}

// PatchTimer applies an edit to the current version of a timer.
func (c *Controller) PatchTimer(ctx context.Context, id string, patch model.TimerPatch) (model.Timer, error) {
	var patched model.Timer
	err := c.apply(ctx, func(s model.State, _ time.Time) (model.State, []timerstate.Event, error) {
		existing, _, ok := s.FindTimer(id)
		if !ok {
			return s, nil, timerstate.ErrTimerNotFound
		}
		updated, err := patch.Apply(existing)
		if err != nil {
			return s, nil, err
		}
		patched = updated
		return timerstate.UpdateTimer(s, updated)
	})
	return patched, err
}

func (c *Controller) DeleteTimer(ctx context.Context, id string) error {
	return c.apply(ctx, func(s model.State, _ time.Time) (model.State, []timerstate.Event, error) {
		return timerstate.DeleteTimer(s, id)
	})
}

func (c *Controller) UpdateTimerPositions(ctx context.Context, ordered []model.Timer) {
	_ = c.apply(ctx, func(s model.State, _ time.Time) (model.State, []timerstate.Event, error) {
		next, events := timerstate.UpdateTimerPositions(s, ordered)
		return next, events, nil
	})
}

// Reorder applies a completed drag gesture given as the new id order.
func (c *Controller) Reorder(ctx context.Context, ids []string) error {
	return c.apply(ctx, func(s model.State, _ time.Time) (model.State, []timerstate.Event, error) {
		ordered, err := timerstate.Reordered(s.Timers, ids)
		if err != nil {
			return s, nil, err
		}
		next, events := timerstate.UpdateTimerPositions(s, ordered)
		return next, events, nil
	})
}

func (c *Controller) StartTimer(ctx context.Context, id string) error {
	return c.apply(ctx, func(s model.State, _ time.Time) (model.State, []timerstate.Event, error) {
		return timerstate.StartTimer(s, id)
	})
}

func (c *Controller) PauseTimer(ctx context.Context, id string) {
	_ = c.apply(ctx, func(s model.State, _ time.Time) (model.State, []timerstate.Event, error) {
		next, events := timerstate.PauseTimer(s, id)
		return next, events, nil
	})
}

func (c *Controller) StopTimer(ctx context.Context) {
	_ = c.apply(ctx, func(s model.State, _ time.Time) (model.State, []timerstate.Event, error) {
		next, events := timerstate.StopTimer(s)
		return next, events, nil
	})
}

func (c *Controller) ResetTimer(ctx context.Context, id string) error {
	return c.apply(ctx, func(s model.State, _ time.Time) (model.State, []timerstate.Event, error) {
		return timerstate.ResetTimer(s, id)
	})
}

func (c *Controller) UpdateGlobalPauseDuration(ctx context.Context, minutes int) error {
	return c.apply(ctx, func(s model.State, _ time.Time) (model.State, []timerstate.Event, error) {
		return timerstate.UpdateGlobalPauseDuration(s, minutes)
	})
}

func (c *Controller) StopBreakTimer(ctx context.Context) {
	_ = c.apply(ctx, func(s model.State, _ time.Time) (model.State, []timerstate.Event, error) {
		next, events := timerstate.StopBreakTimer(s)
		return next, events, nil
	})
}

func (c *Controller) StartBreakCountdown(ctx context.Context) error {
	return c.apply(ctx, func(s model.State, _ time.Time) (model.State, []timerstate.Event, error) {
		return timerstate.StartBreakCountdown(s)
	})
}

// Replace swaps in a whole state, e.g. one decoded from a shared link.
func (c *Controller) Replace(ctx context.Context, state model.State) {
	_ = c.apply(ctx, func(_ model.State, _ time.Time) (model.State, []timerstate.Event, error) {
		return state.Clone(), []timerstate.Event{{
			Type:    timerstate.EventStateImported,
			Title:   "State imported",
			Message: "Timers were loaded from a shared link.",
		}}, nil
	})
}

// Tick advances the countdown by one step.
func (c *Controller) Tick(ctx context.Context) {
	_ = c.apply(ctx, func(s model.State, now time.Time) (model.State, []timerstate.Event, error) {
		next, events := timerstate.Tick(s, now, c.options.BreakPolicy)
		return next, events, nil
	})
}

// Run ticks until ctx is done. Ticks run on this goroutine only, so one tick
// always finishes before the next starts.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.options.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// TimeUntilReset renders the time left until usage counters reset.
func (c *Controller) TimeUntilReset() string {
	return timerstate.FormatUntilReset(timerstate.TimeUntilReset(c.now()))
}

func (c *Controller) Now() time.Time {
	return c.now()
}

// Subscribe registers an observer. Events are dropped for full channels.
func (c *Controller) Subscribe(buffer int) <-chan timerstate.Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan timerstate.Event, buffer)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch
	}
	c.events = append(c.events, ch)
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (c *Controller) Unsubscribe(events <-chan timerstate.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, ch := range c.events {
		if ch == events {
			c.events = append(c.events[:i], c.events[i+1:]...)
			close(ch)
			return
		}
	}
}

// Close closes every observer channel and waits for queued notifications.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	events := c.events
	c.events = nil
	close(c.notifications)
	c.mu.Unlock()

	for _, ch := range events {
		close(ch)
	}
	<-c.delivered
}

func (c *Controller) apply(ctx context.Context, fn transition) error {
	c.mu.Lock()
	now := c.now()
	previous := c.state

	state, events := timerstate.Rollover(previous, now.Format(model.DayLayout))
	changed := len(events) > 0

	next, transitionEvents, err := fn(state, now)
	if err != nil {
		next = state
		events = append(events, timerstate.Event{
			Type:    timerstate.EventRejected,
			Title:   "Action not allowed",
			Message: err.Error(),
		})
	} else {
		events = append(events, transitionEvents...)
		changed = changed || len(transitionEvents) > 0 || next.Countdown != state.Countdown
	}

	c.state = next
	if changed {
		if saveErr := c.store.Save(ctx, next); saveErr != nil {
			c.options.Logger.Printf("save timer state for %q: %v", c.options.Owner, saveErr)
		}
	}

	for i := range events {
		if events[i].At.IsZero() {
			events[i].At = now
		}
		c.emitLocked(events[i])
		if events[i].Notifiable() {
			c.enqueueLocked(events[i])
		}
	}
	c.mu.Unlock()

	if err != nil {
		c.options.Logger.Printf("timer command rejected for %q: %v", c.options.Owner, err)
	}
	return err
}

func (c *Controller) emitLocked(event timerstate.Event) {
	for _, ch := range c.events {
		select {
		case ch <- event:
		default:
		}
	}
}

func (c *Controller) enqueueLocked(event timerstate.Event) {
	if c.closed {
		return
	}
	select {
	case c.notifications <- event:
	default:
		c.options.Logger.Printf("notification queue full for %q; dropping %s", c.options.Owner, event.Type)
	}
}

// deliver sends notifications off the command and tick path.
func (c *Controller) deliver() {
	defer close(c.delivered)
	for event := range c.notifications {
		c.notify(context.Background(), event)
	}
}

func (c *Controller) notify(ctx context.Context, event timerstate.Event) {
	err := c.options.Notifier.Notify(ctx, notify.Notification{
		App:    notify.AppName,
		Owner:  c.options.Owner,
		Kind:   string(event.Type),
		Title:  event.Title,
		Body:   event.Message,
		SentAt: event.At,
	})
	if err != nil {
		c.options.Logger.Printf("deliver %s notification for %q: %v", event.Type, c.options.Owner, err)
	}
}

func (c *Controller) now() time.Time {
	return c.options.Clock().In(c.options.Location)
}
