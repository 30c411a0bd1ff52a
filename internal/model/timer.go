package model

import (
	"errors"
	"strings"
	"time"
)

const (
	MaxTitleLength      = 50
	MaxDurationMinutes  = 9999
	MaxDailyLimit       = 10
	DefaultPauseMinutes = 5
)

var TimerColors = []string{
	"#FF5252",
	"#FF9800",
	"#FFEB3B",
	"#4CAF50",
	"#2196F3",
	"#673AB7",
	"#F06292",
	"#00BCD4",
}

var (
	ErrTitleRequired     = errors.New("title is required")
	ErrTitleTooLong      = errors.New("title is too long")
	ErrInvalidDuration   = errors.New("duration must be between 1 and 9999 minutes")
	ErrInvalidDailyLimit = errors.New("daily limit must be between 1 and 10")
	ErrInvalidUsage      = errors.New("usedToday must not be negative")
)

type Timer struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	DurationMinutes int    `json:"durationMinutes"`
	DailyLimit      int    `json:"dailyLimit"`
	UsedToday       int    `json:"usedToday"`
	Color           string `json:"color"`
	Position        int    `json:"position"`
}

// DurationSeconds is the full countdown length of a fresh start.
func (t Timer) DurationSeconds() int {
	return t.DurationMinutes * 60
}

func (t Timer) LimitReached() bool {
	return t.UsedToday >= t.DailyLimit
}

// TimerSpec is the user-supplied part of a new timer.
type TimerSpec struct {
	Title           string `json:"title"`
	DurationMinutes int    `json:"durationMinutes"`
	DailyLimit      int    `json:"dailyLimit"`
	Color           string `json:"color"`
}

func ValidateTimerSpec(spec TimerSpec) error {
	title := strings.TrimSpace(spec.Title)
	if title == "" {
		return ErrTitleRequired
	}
	if len([]rune(title)) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if spec.DurationMinutes < 1 || spec.DurationMinutes > MaxDurationMinutes {
		return ErrInvalidDuration
	}
	if spec.DailyLimit < 1 || spec.DailyLimit > MaxDailyLimit {
		return ErrInvalidDailyLimit
	}
	return nil
}

// TimerPatch carries an edit; nil fields keep the existing value.
type TimerPatch struct {
	Title           *string `json:"title"`
	DurationMinutes *int    `json:"durationMinutes"`
	DailyLimit      *int    `json:"dailyLimit"`
	UsedToday       *int    `json:"usedToday"`
	Color           *string `json:"color"`
	Position        *int    `json:"position"`
}

func (p TimerPatch) Apply(existing Timer) (Timer, error) {
	updated := existing
	if p.Title != nil {
		updated.Title = strings.TrimSpace(*p.Title)
	}
	if p.DurationMinutes != nil {
		updated.DurationMinutes = *p.DurationMinutes
	}
	if p.DailyLimit != nil {
		updated.DailyLimit = *p.DailyLimit
	}
	if p.Color != nil {
		updated.Color = *p.Color
	}
	if p.UsedToday != nil {
		if *p.UsedToday < 0 {
			return existing, ErrInvalidUsage
		}
		updated.UsedToday = *p.UsedToday
	}
	if p.Position != nil {
		updated.Position = *p.Position
	}

	if err := ValidateTimerSpec(TimerSpec{
		Title:           updated.Title,
		DurationMinutes: updated.DurationMinutes,
		DailyLimit:      updated.DailyLimit,
	}); err != nil {
		return existing, err
	}
	return updated, nil
}

func PaletteColor(position int) string {
	if position < 0 {
		position = -position
	}
	return TimerColors[position%len(TimerColors)]
}

type CompletedTimer struct {
	TimerID         string    `json:"timerId"`
	TimerTitle      string    `json:"timerTitle"`
	CompletedAt     time.Time `json:"completedAt"`
	DurationMinutes int       `json:"durationMinutes"`
}
