// Package snapshot converts timer state to and from its persisted document:
// the JSON blob stored under the state key, the shareable link token and the
// YAML export.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"pomodoroplaza/internal/model"
)

var ErrMalformed = errors.New("malformed timer state")

// Document is the persisted shape of model.State. It keeps the separate
// activeTimer and breakTimer records so blobs written by older clients load.
type Document struct {
	Timers                     []model.Timer          `json:"timers" yaml:"timers"`
	ActiveTimer                *model.ActiveTimer     `json:"activeTimer" yaml:"active_timer,omitempty"`
	BreakTimer                 model.BreakTimer       `json:"breakTimer" yaml:"break_timer"`
	LastResetDay               string                 `json:"lastResetDay" yaml:"last_reset_day"`
	GlobalPauseDurationMinutes int                    `json:"globalPauseDurationMinutes" yaml:"global_pause_duration_minutes"`
	CompletedTimers            []model.CompletedTimer `json:"completedTimers" yaml:"completed_timers"`
}

func FromState(state model.State) Document {
	doc := Document{
		Timers:                     append(make([]model.Timer, 0, len(state.Timers)), state.Timers...),
		ActiveTimer:                state.ActiveTimer(),
		BreakTimer:                 state.BreakTimer(),
		LastResetDay:               state.LastResetDay,
		GlobalPauseDurationMinutes: state.GlobalPauseDurationMinutes,
		CompletedTimers:            append(make([]model.CompletedTimer, 0, len(state.CompletedTimers)), state.CompletedTimers...),
	}
	return doc
}

// ToState validates the document and rebuilds the state. now fills in a
// missing lastResetDay.
func (d Document) ToState(now time.Time) (model.State, error) {
	state := model.DefaultState(now)
	if d.Timers != nil {
		state.Timers = append(state.Timers, d.Timers...)
	}
	if d.CompletedTimers != nil {
		state.CompletedTimers = append(state.CompletedTimers, d.CompletedTimers...)
	}
	if d.LastResetDay != "" {
		if _, err := time.Parse(model.DayLayout, d.LastResetDay); err != nil {
			return model.State{}, fmt.Errorf("%w: lastResetDay %q", ErrMalformed, d.LastResetDay)
		}
		state.LastResetDay = d.LastResetDay
	}
	switch {
	case d.GlobalPauseDurationMinutes > 0:
		state.GlobalPauseDurationMinutes = d.GlobalPauseDurationMinutes
	case d.GlobalPauseDurationMinutes < 0:
		return model.State{}, fmt.Errorf("%w: negative pause duration", ErrMalformed)
	}

	seen := make(map[string]struct{}, len(state.Timers))
	for _, timer := range state.Timers {
		if timer.ID == "" {
			return model.State{}, fmt.Errorf("%w: timer without id", ErrMalformed)
		}
		if _, dup := seen[timer.ID]; dup {
			return model.State{}, fmt.Errorf("%w: duplicate timer id %s", ErrMalformed, timer.ID)
		}
		seen[timer.ID] = struct{}{}
		if timer.UsedToday < 0 || timer.DurationMinutes <= 0 || timer.DailyLimit <= 0 {
			return model.State{}, fmt.Errorf("%w: timer %s has invalid counters", ErrMalformed, timer.ID)
		}
	}

	countdown, err := d.countdown(seen)
	if err != nil {
		return model.State{}, err
	}
	state.Countdown = countdown
	return state, nil
}

func (d Document) countdown(known map[string]struct{}) (model.Countdown, error) {
	breakTimer := d.BreakTimer
	breakActive := breakTimer.IsActive || breakTimer.IsPending

	if d.ActiveTimer != nil {
		active := d.ActiveTimer
		if breakActive {
			return model.Countdown{}, fmt.Errorf("%w: active timer during a break", ErrMalformed)
		}
		if active.IsRunning == active.IsPaused {
			return model.Countdown{}, fmt.Errorf("%w: active timer must be running or paused", ErrMalformed)
		}
		if active.TimeRemaining < 0 {
			return model.Countdown{}, fmt.Errorf("%w: negative time remaining", ErrMalformed)
		}
		if _, ok := known[active.ID]; !ok {
			return model.Countdown{}, fmt.Errorf("%w: active timer %s does not exist", ErrMalformed, active.ID)
		}
		phase := model.PhaseRunning
		if active.IsPaused {
			phase = model.PhasePaused
		}
		return model.Countdown{Phase: phase, TimerID: active.ID, Remaining: active.TimeRemaining}, nil
	}

	if !breakActive {
		return model.Countdown{Phase: model.PhaseIdle}, nil
	}
	if breakTimer.IsActive && breakTimer.IsPending {
		return model.Countdown{}, fmt.Errorf("%w: break both active and pending", ErrMalformed)
	}
	if breakTimer.TimeRemaining < 0 {
		return model.Countdown{}, fmt.Errorf("%w: negative break time remaining", ErrMalformed)
	}

	countdown := model.Countdown{Phase: model.PhaseBreak, Remaining: breakTimer.TimeRemaining}
	if breakTimer.IsPending {
		countdown = model.Countdown{Phase: model.PhaseBreakPending}
	}
	if breakTimer.CompletedTimerID != nil {
		countdown.TimerID = *breakTimer.CompletedTimerID
	}
	return countdown, nil
}

func Marshal(state model.State) ([]byte, error) {
	payload, err := json.Marshal(FromState(state))
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return payload, nil
}

func Unmarshal(payload []byte, now time.Time) (model.State, error) {
	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return model.State{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return doc.ToState(now)
}

func MarshalYAML(state model.State) ([]byte, error) {
	payload, err := yaml.Marshal(FromState(state))
	if err != nil {
		return nil, fmt.Errorf("marshal state yaml: %w", err)
	}
	return payload, nil
}
