// Package heatmap aggregates completed timers into per-day activity cells.
package heatmap

import (
	"sort"
	"time"

	"pomodoroplaza/internal/model"
)

const (
	DefaultDays = 90
	MaxDays     = 366
)

type Day struct {
	Date   string         `json:"date"`
	Count  int            `json:"count"`
	Level  int            `json:"level"`
	Titles map[string]int `json:"titles,omitempty"`
}

type Heatmap struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Total int    `json:"total"`
	Days  []Day  `json:"days"`
}

// ClampDays bounds a requested window to [1, MaxDays]; zero or less means the default.
func ClampDays(days int) int {
	switch {
	case days <= 0:
		return DefaultDays
	case days > MaxDays:
		return MaxDays
	default:
		return days
	}
}

// Level maps a daily count to an intensity bucket from 0 to 4.
func Level(count int) int {
	switch {
	case count <= 0:
		return 0
	case count <= 2:
		return 1
	case count <= 4:
		return 2
	case count <= 6:
		return 3
	default:
		return 4
	}
}

// Build returns one cell per day ending today in loc, oldest first.
func Build(completed []model.CompletedTimer, now time.Time, loc *time.Location, days int) Heatmap {
	if loc == nil {
		loc = time.Local
	}
	days = ClampDays(days)
	today := now.In(loc)
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(days - 1))

	cells := make([]Day, days)
	index := make(map[string]int, days)
	for i := range cells {
		date := start.AddDate(0, 0, i).Format(model.DayLayout)
		cells[i] = Day{Date: date}
		index[date] = i
	}

	total := 0
	for _, entry := range completed {
		i, ok := index[entry.CompletedAt.In(loc).Format(model.DayLayout)]
		if !ok {
			continue
		}
		cell := &cells[i]
		cell.Count++
		if cell.Titles == nil {
			cell.Titles = make(map[string]int)
		}
		cell.Titles[entry.TimerTitle]++
		total++
	}
	for i := range cells {
		cells[i].Level = Level(cells[i].Count)
	}

	return Heatmap{
		From:  cells[0].Date,
		To:    cells[len(cells)-1].Date,
		Total: total,
		Days:  cells,
	}
}

// Latest returns up to limit completions, newest first.
func Latest(completed []model.CompletedTimer, limit int) []model.CompletedTimer {
	sorted := make([]model.CompletedTimer, len(completed))
	copy(sorted, completed)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompletedAt.After(sorted[j].CompletedAt)
	})
	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
