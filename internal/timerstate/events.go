package timerstate

import "time"

// EventType names a transition of the timer state.
type EventType string

const (
	EventTimerAdded           EventType = "timer_added"
	EventTimerUpdated         EventType = "timer_updated"
	EventTimerDeleted         EventType = "timer_deleted"
	EventTimersReordered      EventType = "timers_reordered"
	EventTimerStarted         EventType = "timer_started"
	EventTimerResumed         EventType = "timer_resumed"
	EventTimerSwitched        EventType = "timer_switched"
	EventTimerPaused          EventType = "timer_paused"
	EventTimerStopped         EventType = "timer_stopped"
	EventTimerCompleted       EventType = "timer_completed"
	EventTimerReset           EventType = "timer_reset"
	EventBreakStarted         EventType = "break_started"
	EventBreakPending         EventType = "break_pending"
	EventBreakCompleted       EventType = "break_completed"
	EventBreakSkipped         EventType = "break_skipped"
	EventDailyReset           EventType = "daily_reset"
	EventPauseDurationUpdated EventType = "pause_duration_updated"
	EventStateImported        EventType = "state_imported"
	EventRejected             EventType = "rejected"
)

// Event describes one observable change, with a user-facing title and message.
type Event struct {
	Type      EventType `json:"type"`
	TimerID   string    `json:"timerId,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Remaining int       `json:"remaining,omitempty"`
	At        time.Time `json:"at"`
}

// Notifiable reports whether the event goes to the desktop notification channel.
func (e Event) Notifiable() bool {
	switch e.Type {
	case EventTimerCompleted, EventBreakCompleted, EventDailyReset:
		return true
	default:
		return false
	}
}
