package timerstate

import "errors"

var (
	ErrBreakActive          = errors.New("a break is in progress, wait for it to finish before starting a new timer")
	ErrTimerNotFound        = errors.New("timer not found")
	ErrDailyLimitReached    = errors.New("daily usage limit reached for this timer")
	ErrTimerActive          = errors.New("a timer is active, stop it before starting a break")
	ErrInvalidPauseDuration = errors.New("pause duration must be a positive number of minutes")
	ErrInvalidOrder         = errors.New("order must list every timer exactly once")
)
