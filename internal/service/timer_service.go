package service

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"pomodoroplaza/internal/controller"
	apperrors "pomodoroplaza/internal/errors"
	"pomodoroplaza/internal/heatmap"
	"pomodoroplaza/internal/model"
	"pomodoroplaza/internal/notify"
	"pomodoroplaza/internal/repository"
	"pomodoroplaza/internal/snapshot"
	"pomodoroplaza/internal/statestore"
	"pomodoroplaza/internal/timerstate"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

type TimerOptions struct {
	Clock               func() time.Time
	Location            *time.Location
	BreakPolicy         timerstate.BreakPolicy
	TickInterval        time.Duration
	DefaultPauseMinutes int
	Notifier            notify.Notifier
	Logger              *log.Logger
	ShareBaseURL        string
}

// TimerService keeps one controller per account, loaded on first use.
type TimerService struct {
	repo    *repository.StateRepository
	options TimerOptions

	mu          sync.Mutex
	controllers map[string]*controller.Controller
}

type TimerView struct {
	model.Timer
	DurationLabel string `json:"durationLabel"`
	LimitReached  bool   `json:"limitReached"`
}

type ActiveTimerView struct {
	model.ActiveTimer
	Title    string  `json:"title"`
	Clock    string  `json:"clock"`
	Progress float64 `json:"progress"`
}

type BreakView struct {
	model.BreakTimer
	Clock    string  `json:"clock"`
	Progress float64 `json:"progress"`
}

type StateView struct {
	Timers                     []TimerView      `json:"timers"`
	ActiveTimer                *ActiveTimerView `json:"activeTimer"`
	BreakTimer                 BreakView        `json:"breakTimer"`
	LastResetDay               string           `json:"lastResetDay"`
	GlobalPauseDurationMinutes int              `json:"globalPauseDurationMinutes"`
	CompletedToday             int              `json:"completedToday"`
	BreakPolicy                string           `json:"breakPolicy"`
	TimeUntilReset             string           `json:"timeUntilReset"`
	ServerTime                 time.Time        `json:"serverTime"`
}

type ShareView struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

func NewTimerService(repo *repository.StateRepository, options TimerOptions) *TimerService {
	if options.Clock == nil {
		options.Clock = time.Now
	}
	if options.Location == nil {
		options.Location = time.Local
	}
	if options.Logger == nil {
		options.Logger = log.Default()
	}
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	return &TimerService{
		repo:        repo,
		options:     options,
		controllers: make(map[string]*controller.Controller),
	}
}

// Seed stores the default state for a new account unless one exists.
func (s *TimerService) Seed(ctx context.Context, userID string) error {
	store := statestore.New(s.repo, statestore.KeyFor(userID))
	_, found, err := store.Load(ctx, s.now())
	if err != nil || found {
		return err
	}
	state := model.DefaultState(s.now())
	if s.options.DefaultPauseMinutes > 0 {
		state.GlobalPauseDurationMinutes = s.options.DefaultPauseMinutes
	}
	return store.Save(ctx, state)
}

// Preload loads every stored account so running countdowns resume ticking
// after a restart without waiting for a request.
func (s *TimerService) Preload(ctx context.Context) (int, error) {
	prefix := statestore.LocalKey + ":"
	keys, err := s.repo.Keys(ctx, prefix)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		s.controllerFor(ctx, strings.TrimPrefix(key, prefix))
	}
	return len(keys), nil
}

// Run ticks every loaded controller once per interval until ctx is done.
func (s *TimerService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.options.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.TickAll(ctx)
		}
	}
}

// TickAll advances every loaded countdown by one step.
func (s *TimerService) TickAll(ctx context.Context) {
	for _, ctrl := range s.loaded() {
		ctrl.Tick(ctx)
	}
}

func (s *TimerService) Close() {
	for _, ctrl := range s.loaded() {
		ctrl.Close()
	}
}

func (s *TimerService) GetState(ctx context.Context, userID string) (*StateView, *apperrors.APIError) {
	return s.view(ctx, s.controllerFor(ctx, userID)), nil
}

func (s *TimerService) AddTimer(ctx context.Context, userID string, spec model.TimerSpec) (*model.Timer, *apperrors.APIError) {
	spec.Title = strings.TrimSpace(spec.Title)
	if err := model.ValidateTimerSpec(spec); err != nil {
		return nil, apperrors.FromDomain(err)
	}
	timer := s.controllerFor(ctx, userID).AddTimer(ctx, spec)
	return &timer, nil
}

func (s *TimerService) UpdateTimer(ctx context.Context, userID, timerID string, patch model.TimerPatch) (*model.Timer, *apperrors.APIError) {
	timer, err := s.controllerFor(ctx, userID).PatchTimer(ctx, timerID, patch)
	if err != nil {
		return nil, apperrors.FromDomain(err)
	}
	return &timer, nil
}

func (s *TimerService) DeleteTimer(ctx context.Context, userID, timerID string) (*StateView, *apperrors.APIError) {
	return s.command(ctx, userID, func(ctrl *controller.Controller) error {
		return ctrl.DeleteTimer(ctx, timerID)
	})
}

func (s *TimerService) Reorder(ctx context.Context, userID string, ids []string) (*StateView, *apperrors.APIError) {
	return s.command(ctx, userID, func(ctrl *controller.Controller) error {
		return ctrl.Reorder(ctx, ids)
	})
}

func (s *TimerService) StartTimer(ctx context.Context, userID, timerID string) (*StateView, *apperrors.APIError) {
	return s.command(ctx, userID, func(ctrl *controller.Controller) error {
		return ctrl.StartTimer(ctx, timerID)
	})
}

func (s *TimerService) PauseTimer(ctx context.Context, userID, timerID string) (*StateView, *apperrors.APIError) {
	return s.command(ctx, userID, func(ctrl *controller.Controller) error {
		ctrl.PauseTimer(ctx, timerID)
		return nil
	})
}

func (s *TimerService) StopTimer(ctx context.Context, userID string) (*StateView, *apperrors.APIError) {
	return s.command(ctx, userID, func(ctrl *controller.Controller) error {
		ctrl.StopTimer(ctx)
		return nil
	})
}

func (s *TimerService) ResetTimer(ctx context.Context, userID, timerID string) (*StateView, *apperrors.APIError) {
	return s.command(ctx, userID, func(ctrl *controller.Controller) error {
		return ctrl.ResetTimer(ctx, timerID)
	})
}

func (s *TimerService) UpdatePauseDuration(ctx context.Context, userID string, minutes int) (*StateView, *apperrors.APIError) {
	return s.command(ctx, userID, func(ctrl *controller.Controller) error {
		return ctrl.UpdateGlobalPauseDuration(ctx, minutes)
	})
}

func (s *TimerService) StartBreak(ctx context.Context, userID string) (*StateView, *apperrors.APIError) {
	return s.command(ctx, userID, func(ctrl *controller.Controller) error {
		return ctrl.StartBreakCountdown(ctx)
	})
}

func (s *TimerService) SkipBreak(ctx context.Context, userID string) (*StateView, *apperrors.APIError) {
	return s.command(ctx, userID, func(ctrl *controller.Controller) error {
		ctrl.StopBreakTimer(ctx)
		return nil
	})
}

// History returns the newest completions first.
func (s *TimerService) History(ctx context.Context, userID string, limit int) ([]model.CompletedTimer, *apperrors.APIError) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	state := s.controllerFor(ctx, userID).Snapshot(ctx)
	return heatmap.Latest(state.CompletedTimers, limit), nil
}

func (s *TimerService) Heatmap(ctx context.Context, userID string, days int) (*heatmap.Heatmap, *apperrors.APIError) {
	ctrl := s.controllerFor(ctx, userID)
	state := ctrl.Snapshot(ctx)
	result := heatmap.Build(state.CompletedTimers, ctrl.Now(), s.options.Location, days)
	return &result, nil
}

func (s *TimerService) Share(ctx context.Context, userID string) (*ShareView, *apperrors.APIError) {
	state := s.controllerFor(ctx, userID).Snapshot(ctx)
	token, err := snapshot.EncodeShare(state)
	if err != nil {
		return nil, apperrors.Internal("failed to encode share link")
	}
	link, err := snapshot.ShareURL(s.options.ShareBaseURL, state)
	if err != nil {
		return nil, apperrors.Internal("failed to build share link")
	}
	return &ShareView{Token: token, URL: link}, nil
}

// Import replaces the account state with a shared one. The input may be a
// bare token or a full link carrying the state query parameter.
func (s *TimerService) Import(ctx context.Context, userID, shared string) (*StateView, *apperrors.APIError) {
	shared = strings.TrimSpace(shared)
	if shared == "" {
		return nil, apperrors.BadRequest("invalid_share_state", "share token is required")
	}

	ctrl := s.controllerFor(ctx, userID)
	var (
		state model.State
		ok    bool
	)
	if strings.Contains(shared, "?") || strings.Contains(shared, "://") {
		state, ok = snapshot.StateFromURL(shared, ctrl.Now())
	} else {
		state, ok = snapshot.DecodeShare(shared, ctrl.Now())
	}
	if !ok {
		return nil, apperrors.BadRequest("invalid_share_state", "shared state could not be decoded")
	}

	ctrl.Replace(ctx, state)
	return s.view(ctx, ctrl), nil
}

// Subscribe streams the account's events until the returned cancel func runs.
func (s *TimerService) Subscribe(ctx context.Context, userID string, buffer int) (<-chan timerstate.Event, func()) {
	ctrl := s.controllerFor(ctx, userID)
	events := ctrl.Subscribe(buffer)
	return events, func() { ctrl.Unsubscribe(events) }
}

func (s *TimerService) command(ctx context.Context, userID string, fn func(*controller.Controller) error) (*StateView, *apperrors.APIError) {
	ctrl := s.controllerFor(ctx, userID)
	if err := fn(ctrl); err != nil {
		return nil, apperrors.FromDomain(err)
	}
	return s.view(ctx, ctrl), nil
}

func (s *TimerService) controllerFor(ctx context.Context, userID string) *controller.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctrl, ok := s.controllers[userID]; ok {
		return ctrl
	}
	ctrl := controller.Load(ctx, statestore.New(s.repo, statestore.KeyFor(userID)), controller.Options{
		Owner:               userID,
		Clock:               s.options.Clock,
		Location:            s.options.Location,
		BreakPolicy:         s.options.BreakPolicy,
		TickInterval:        s.options.TickInterval,
		DefaultPauseMinutes: s.options.DefaultPauseMinutes,
		Notifier:            s.options.Notifier,
		Logger:              s.options.Logger,
	})
	s.controllers[userID] = ctrl
	return ctrl
}

func (s *TimerService) loaded() []*controller.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	controllers := make([]*controller.Controller, 0, len(s.controllers))
	for _, ctrl := range s.controllers {
		controllers = append(controllers, ctrl)
	}
	return controllers
}

func (s *TimerService) view(ctx context.Context, ctrl *controller.Controller) *StateView {
	state := ctrl.Snapshot(ctx)
	now := ctrl.Now()

	view := StateView{
		Timers:                     make([]TimerView, 0, len(state.Timers)),
		LastResetDay:               state.LastResetDay,
		GlobalPauseDurationMinutes: state.GlobalPauseDurationMinutes,
		BreakPolicy:                string(ctrl.BreakPolicy()),
		TimeUntilReset:             ctrl.TimeUntilReset(),
		ServerTime:                 now.UTC(),
	}
	for _, timer := range state.Timers {
		view.Timers = append(view.Timers, TimerView{
			Timer:         timer,
			DurationLabel: timerstate.FormatMinutes(timer.DurationMinutes),
			LimitReached:  timer.LimitReached(),
		})
		view.CompletedToday += timer.UsedToday
	}

	if active := state.ActiveTimer(); active != nil {
		timer, _, _ := state.FindTimer(active.ID)
		view.ActiveTimer = &ActiveTimerView{
			ActiveTimer: *active,
			Title:       timer.Title,
			Clock:       timerstate.FormatClock(active.TimeRemaining),
			Progress:    timerstate.Progress(active.TimeRemaining, timer.DurationSeconds()),
		}
	}

	breakTimer := state.BreakTimer()
	view.BreakTimer = BreakView{BreakTimer: breakTimer}
	if breakTimer.IsActive {
		view.BreakTimer.Clock = timerstate.FormatClock(breakTimer.TimeRemaining)
		view.BreakTimer.Progress = timerstate.Progress(breakTimer.TimeRemaining, state.GlobalPauseDurationMinutes*60)
	}
	return &view
}

func (s *TimerService) now() time.Time {
	return s.options.Clock().In(s.options.Location)
}
