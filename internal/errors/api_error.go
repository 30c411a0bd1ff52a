package errors

import (
	"errors"
	"net/http"

	"pomodoroplaza/internal/model"
	"pomodoroplaza/internal/timerstate"
)

type APIError struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func New(status int, code, message string) *APIError {
	return &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func Internal(message string) *APIError {
	if message == "" {
		message = "internal server error"
	}
	return New(http.StatusInternalServerError, "internal_error", message)
}

func BadRequest(code, message string) *APIError {
	return New(http.StatusBadRequest, code, message)
}

func Unauthorized(message string) *APIError {
	if message == "" {
		message = "unauthorized"
	}
	return New(http.StatusUnauthorized, "unauthorized", message)
}

func NotFound(code, message string) *APIError {
	return New(http.StatusNotFound, code, message)
}

func Conflict(code, message string, details interface{}) *APIError {
	err := New(http.StatusConflict, code, message)
	err.Details = details
	return err
}

// FromDomain classifies a rejected timer command. Unknown errors become 500s.
func FromDomain(err error) *APIError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, timerstate.ErrBreakActive):
		return Conflict("break_active", err.Error(), nil)
	case errors.Is(err, timerstate.ErrDailyLimitReached):
		return Conflict("daily_limit_reached", err.Error(), nil)
	case errors.Is(err, timerstate.ErrTimerActive):
		return Conflict("timer_active", err.Error(), nil)
	case errors.Is(err, timerstate.ErrTimerNotFound):
		return NotFound("timer_not_found", err.Error())
	case errors.Is(err, timerstate.ErrInvalidPauseDuration):
		return BadRequest("invalid_pause_duration", err.Error())
	case errors.Is(err, timerstate.ErrInvalidOrder):
		return BadRequest("invalid_order", err.Error())
	case errors.Is(err, model.ErrTitleRequired),
		errors.Is(err, model.ErrTitleTooLong),
		errors.Is(err, model.ErrInvalidDuration),
		errors.Is(err, model.ErrInvalidDailyLimit),
		errors.Is(err, model.ErrInvalidUsage):
		return BadRequest("invalid_timer", err.Error())
	default:
		return Internal("")
	}
}
