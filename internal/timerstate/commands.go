// Package timerstate implements the timer/break state machine as pure
// functions. Each command takes a state snapshot and returns a new one; the
// input is never modified. A non-nil error means the command was rejected and
// the returned state is the input unchanged.
package timerstate

import (
	"fmt"
	"sort"

	"pomodoroplaza/internal/model"
)

func AddTimer(s model.State, id string, spec model.TimerSpec) (model.State, model.Timer, []Event) {
	next := s.Clone()
	timer := model.Timer{
		ID:              id,
		Title:           spec.Title,
		DurationMinutes: spec.DurationMinutes,
		DailyLimit:      spec.DailyLimit,
		UsedToday:       0,
		Color:           spec.Color,
		Position:        len(s.Timers),
	}
	if timer.Color == "" {
		timer.Color = model.PaletteColor(timer.Position)
	}
	next.Timers = append(next.Timers, timer)

	return next, timer, []Event{{
		Type:    EventTimerAdded,
		TimerID: id,
		Title:   "Timer added",
		Message: fmt.Sprintf("%q was added.", timer.Title),
	}}
}

// UpdateTimer replaces the timer with the same id verbatim.
func UpdateTimer(s model.State, timer model.Timer) (model.State, []Event, error) {
	_, index, ok := s.FindTimer(timer.ID)
	if !ok {
		return s, nil, ErrTimerNotFound
	}
	next := s.Clone()
	next.Timers[index] = timer
	return next, []Event{{
		Type:    EventTimerUpdated,
		TimerID: timer.ID,
		Title:   "Timer updated",
		Message: fmt.Sprintf("%q was updated.", timer.Title),
	}}, nil
}

// DeleteTimer removes a timer and renumbers the survivors to 0..n-1 in their
// current order. Any countdown that references the timer is cleared.
func DeleteTimer(s model.State, id string) (model.State, []Event, error) {
	removed, _, ok := s.FindTimer(id)
	if !ok {
		return s, nil, ErrTimerNotFound
	}

	next := s.Clone()
	survivors := make([]model.Timer, 0, len(s.Timers)-1)
	for _, timer := range sortedByPosition(s.Timers) {
		if timer.ID == id {
			continue
		}
		timer.Position = len(survivors)
		survivors = append(survivors, timer)
	}
	next.Timers = survivors

	if next.Countdown.TimerID == id && (next.Countdown.HasActiveTimer() || next.Countdown.Phase == model.PhaseBreakPending) {
		next.Countdown = idle()
	}

	return next, []Event{{
		Type:    EventTimerDeleted,
		TimerID: id,
		Title:   "Timer deleted",
		Message: fmt.Sprintf("%q was deleted.", removed.Title),
	}}, nil
}

// UpdateTimerPositions replaces the collection verbatim. The caller owns the
// position values. A countdown whose timer is no longer listed is cleared as
// DeleteTimer would.
func UpdateTimerPositions(s model.State, ordered []model.Timer) (model.State, []Event) {
	next := s.Clone()
	next.Timers = append(make([]model.Timer, 0, len(ordered)), ordered...)
	if _, _, ok := next.FindTimer(next.Countdown.TimerID); !ok &&
		(next.Countdown.HasActiveTimer() || next.Countdown.Phase == model.PhaseBreakPending) {
		next.Countdown = idle()
	}
	return next, []Event{{
		Type:    EventTimersReordered,
		Title:   "Timers reordered",
		Message: "The timer order was updated.",
	}}
}

// Reordered builds the collection for a finished drag gesture: ids must name
// every timer exactly once, and positions follow the order of ids.
func Reordered(timers []model.Timer, ids []string) ([]model.Timer, error) {
	if len(ids) != len(timers) {
		return nil, ErrInvalidOrder
	}
	byID := make(map[string]model.Timer, len(timers))
	for _, timer := range timers {
		byID[timer.ID] = timer
	}

	ordered := make([]model.Timer, 0, len(ids))
	for i, id := range ids {
		timer, ok := byID[id]
		if !ok {
			return nil, ErrInvalidOrder
		}
		delete(byID, id)
		timer.Position = i
		ordered = append(ordered, timer)
	}
	return ordered, nil
}

func StartTimer(s model.State, id string) (model.State, []Event, error) {
	if s.Countdown.InBreak() {
		return s, nil, ErrBreakActive
	}
	timer, _, ok := s.FindTimer(id)
	if !ok {
		return s, nil, ErrTimerNotFound
	}
	if timer.LimitReached() {
		return s, nil, ErrDailyLimitReached
	}

	current := s.Countdown
	if current.TimerID == id {
		switch current.Phase {
		case model.PhasePaused:
			next := s.Clone()
			next.Countdown.Phase = model.PhaseRunning
			return next, []Event{{
				Type:      EventTimerResumed,
				TimerID:   id,
				Title:     "Timer resumed",
				Message:   fmt.Sprintf("%q is running again.", timer.Title),
				Remaining: current.Remaining,
			}}, nil
		case model.PhaseRunning:
			return s, nil, nil
		}
	}

	var events []Event
	if current.HasActiveTimer() {
		events = append(events, Event{
			Type:    EventTimerSwitched,
			TimerID: current.TimerID,
			Title:   "Timer switched",
			Message: "Previous timer has been stopped.",
		})
	}

	next := s.Clone()
	next.Countdown = model.Countdown{
		Phase:     model.PhaseRunning,
		TimerID:   id,
		Remaining: timer.DurationSeconds(),
	}
	events = append(events, Event{
		Type:      EventTimerStarted,
		TimerID:   id,
		Title:     "Timer started",
		Message:   fmt.Sprintf("%q started.", timer.Title),
		Remaining: next.Countdown.Remaining,
	})
	return next, events, nil
}

func PauseTimer(s model.State, id string) (model.State, []Event) {
	if s.Countdown.Phase != model.PhaseRunning || s.Countdown.TimerID != id {
		return s, nil
	}
	next := s.Clone()
	next.Countdown.Phase = model.PhasePaused
	return next, []Event{{
		Type:      EventTimerPaused,
		TimerID:   id,
		Title:     "Timer paused",
		Message:   "The timer is paused.",
		Remaining: next.Countdown.Remaining,
	}}
}

// StopTimer cancels the active timer without crediting usage.
func StopTimer(s model.State) (model.State, []Event) {
	if !s.Countdown.HasActiveTimer() {
		return s, nil
	}
	stopped := s.Countdown.TimerID
	next := s.Clone()
	next.Countdown = idle()
	return next, []Event{{
		Type:    EventTimerStopped,
		TimerID: stopped,
		Title:   "Timer stopped",
		Message: "The timer was cancelled.",
	}}
}

func ResetTimer(s model.State, id string) (model.State, []Event, error) {
	_, index, ok := s.FindTimer(id)
	if !ok {
		return s, nil, ErrTimerNotFound
	}
	next := s.Clone()
	next.Timers[index].UsedToday = 0
	if next.Countdown.TimerID == id {
		next.Countdown = idle()
	}
	return next, []Event{{
		Type:    EventTimerReset,
		TimerID: id,
		Title:   "Timer reset",
		Message: "The timer usage count has been reset.",
	}}, nil
}

// UpdateGlobalPauseDuration applies to breaks started afterwards only.
func UpdateGlobalPauseDuration(s model.State, minutes int) (model.State, []Event, error) {
	if minutes <= 0 {
		return s, nil, ErrInvalidPauseDuration
	}
	next := s.Clone()
	next.GlobalPauseDurationMinutes = minutes
	return next, []Event{{
		Type:    EventPauseDurationUpdated,
		Title:   "Break length updated",
		Message: fmt.Sprintf("Breaks now last %s.", FormatMinutes(minutes)),
	}}, nil
}

// StopBreakTimer skips the current break, pending or running.
func StopBreakTimer(s model.State) (model.State, []Event) {
	if !s.Countdown.InBreak() {
		return s, nil
	}
	next := s.Clone()
	next.Countdown = idle()
	return next, []Event{{
		Type:    EventBreakSkipped,
		Title:   "Break skipped",
		Message: "You have skipped your break.",
	}}
}

// StartBreakCountdown starts a pending break, starts a break from idle, or
// restarts a running break at the full configured length.
func StartBreakCountdown(s model.State) (model.State, []Event, error) {
	if s.Countdown.HasActiveTimer() {
		return s, nil, ErrTimerActive
	}
	next := s.Clone()
	completed := ""
	if s.Countdown.InBreak() {
		completed = s.Countdown.TimerID
	}
	next.Countdown = breakCountdown(s, completed)
	return next, []Event{{
		Type:      EventBreakStarted,
		TimerID:   completed,
		Title:     "Break started",
		Message:   "Time to relax.",
		Remaining: next.Countdown.Remaining,
	}}, nil
}

func idle() model.Countdown {
	return model.Countdown{Phase: model.PhaseIdle}
}

func breakCountdown(s model.State, completedTimerID string) model.Countdown {
	return model.Countdown{
		Phase:     model.PhaseBreak,
		TimerID:   completedTimerID,
		Remaining: s.GlobalPauseDurationMinutes * 60,
	}
}

func sortedByPosition(timers []model.Timer) []model.Timer {
	sorted := append(make([]model.Timer, 0, len(timers)), timers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})
	return sorted
}
