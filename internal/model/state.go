package model

import "time"

// Phase is the single countdown slot of the state. An active timer and a
// break can never coexist because both live in the same slot.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseRunning      Phase = "running"
	PhasePaused       Phase = "paused"
	PhaseBreak        Phase = "break"
	PhaseBreakPending Phase = "break_pending"
)

const DayLayout = "2006-01-02"

// Countdown holds the active timer or the break.
// For running/paused TimerID is the active timer; for break and
// break_pending it is the completed timer and may be empty.
type Countdown struct {
	Phase     Phase  `json:"phase"`
	TimerID   string `json:"timerId,omitempty"`
	Remaining int    `json:"remaining"`
}

func (c Countdown) HasActiveTimer() bool {
	return c.Phase == PhaseRunning || c.Phase == PhasePaused
}

func (c Countdown) InBreak() bool {
	return c.Phase == PhaseBreak || c.Phase == PhaseBreakPending
}

type ActiveTimer struct {
	ID            string `json:"id"`
	TimeRemaining int    `json:"timeRemaining"`
	IsRunning     bool   `json:"isRunning"`
	IsPaused      bool   `json:"isPaused"`
}

type BreakTimer struct {
	IsActive         bool    `json:"isActive"`
	TimeRemaining    int     `json:"timeRemaining"`
	CompletedTimerID *string `json:"completedTimerId"`
	IsPending        bool    `json:"isPending,omitempty"`
}

type State struct {
	Timers                     []Timer          `json:"timers"`
	Countdown                  Countdown        `json:"countdown"`
	LastResetDay               string           `json:"lastResetDay"`
	GlobalPauseDurationMinutes int              `json:"globalPauseDurationMinutes"`
	CompletedTimers            []CompletedTimer `json:"completedTimers"`
}

func DefaultState(now time.Time) State {
	return State{
		Timers:                     []Timer{},
		Countdown:                  Countdown{Phase: PhaseIdle},
		LastResetDay:               now.Format(DayLayout),
		GlobalPauseDurationMinutes: DefaultPauseMinutes,
		CompletedTimers:            []CompletedTimer{},
	}
}

// ActiveTimer returns nil unless a timer is running or paused.
func (s State) ActiveTimer() *ActiveTimer {
	if !s.Countdown.HasActiveTimer() {
		return nil
	}
	return &ActiveTimer{
		ID:            s.Countdown.TimerID,
		TimeRemaining: s.Countdown.Remaining,
		IsRunning:     s.Countdown.Phase == PhaseRunning,
		IsPaused:      s.Countdown.Phase == PhasePaused,
	}
}

func (s State) BreakTimer() BreakTimer {
	if !s.Countdown.InBreak() {
		return BreakTimer{}
	}
	view := BreakTimer{
		IsActive:  s.Countdown.Phase == PhaseBreak,
		IsPending: s.Countdown.Phase == PhaseBreakPending,
	}
	if view.IsActive {
		view.TimeRemaining = s.Countdown.Remaining
	}
	if s.Countdown.TimerID != "" {
		id := s.Countdown.TimerID
		view.CompletedTimerID = &id
	}
	return view
}

func (s State) FindTimer(id string) (Timer, int, bool) {
	for i, timer := range s.Timers {
		if timer.ID == id {
			return timer, i, true
		}
	}
	return Timer{}, -1, false
}

// Clone copies the slices so the result shares no memory with s.
func (s State) Clone() State {
	clone := s
	clone.Timers = append(make([]Timer, 0, len(s.Timers)), s.Timers...)
	clone.CompletedTimers = append(make([]CompletedTimer, 0, len(s.CompletedTimers)), s.CompletedTimers...)
	return clone
}
