package timerstate

import (
	"fmt"
	"time"

	"pomodoroplaza/internal/model"
)

// BreakPolicy decides what follows a timer's natural expiry.
type BreakPolicy string

const (
	// BreakPolicyAuto starts the break countdown immediately.
	BreakPolicyAuto BreakPolicy = "auto"
	// BreakPolicyManual parks the break until StartBreakCountdown.
	BreakPolicyManual BreakPolicy = "manual"
)

func ParseBreakPolicy(raw string) (BreakPolicy, error) {
	switch BreakPolicy(raw) {
	case BreakPolicyAuto, "":
		return BreakPolicyAuto, nil
	case BreakPolicyManual:
		return BreakPolicyManual, nil
	default:
		return "", fmt.Errorf("unknown break policy %q", raw)
	}
}

// Tick advances the countdown by one second.
func Tick(s model.State, now time.Time, policy BreakPolicy) (model.State, []Event) {
	switch s.Countdown.Phase {
	case model.PhaseRunning:
		return tickActive(s, now, policy)
	case model.PhaseBreak:
		return tickBreak(s, now)
	default:
		return s, nil
	}
}

func tickActive(s model.State, now time.Time, policy BreakPolicy) (model.State, []Event) {
	next := s.Clone()
	next.Countdown.Remaining--
	if next.Countdown.Remaining > 0 {
		return next, nil
	}

	completedID := s.Countdown.TimerID
	events := make([]Event, 0, 2)
	if timer, index, ok := next.FindTimer(completedID); ok {
		next.Timers[index].UsedToday++
		next.CompletedTimers = append(next.CompletedTimers, model.CompletedTimer{
			TimerID:         timer.ID,
			TimerTitle:      timer.Title,
			CompletedAt:     now.UTC(),
			DurationMinutes: timer.DurationMinutes,
		})
		events = append(events, Event{
			Type:    EventTimerCompleted,
			TimerID: completedID,
			Title:   "Timer completed!",
			Message: fmt.Sprintf("Timer %q completed! Time for a break.", timer.Title),
			At:      now,
		})
	}

	if policy == BreakPolicyManual {
		next.Countdown = model.Countdown{Phase: model.PhaseBreakPending, TimerID: completedID}
		events = append(events, Event{
			Type:    EventBreakPending,
			TimerID: completedID,
			Title:   "Break ready",
			Message: "Start your break when you are ready.",
			At:      now,
		})
		return next, events
	}

	next.Countdown = breakCountdown(next, completedID)
	events = append(events, Event{
		Type:      EventBreakStarted,
		TimerID:   completedID,
		Title:     "Break started",
		Message:   fmt.Sprintf("Take %s to rest.", FormatMinutes(next.GlobalPauseDurationMinutes)),
		Remaining: next.Countdown.Remaining,
		At:        now,
	})
	return next, events
}

func tickBreak(s model.State, now time.Time) (model.State, []Event) {
	next := s.Clone()
	next.Countdown.Remaining--
	if next.Countdown.Remaining > 0 {
		return next, nil
	}
	next.Countdown = idle()
	return next, []Event{{
		Type:    EventBreakCompleted,
		Title:   "Break completed",
		Message: "Your break is over. Time to start a new timer!",
		At:      now,
	}}
}

// Rollover clears every usage counter once per calendar day.
func Rollover(s model.State, today string) (model.State, []Event) {
	if s.LastResetDay == today {
		return s, nil
	}
	next := s.Clone()
	for i := range next.Timers {
		next.Timers[i].UsedToday = 0
	}
	next.LastResetDay = today
	return next, []Event{{
		Type:    EventDailyReset,
		Title:   "Daily limits reset",
		Message: "Your timer usage limits have been reset for the new day.",
	}}
}
