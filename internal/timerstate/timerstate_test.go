package timerstate_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"pomodoroplaza/internal/model"
	"pomodoroplaza/internal/timerstate"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestAddTimerAssignsPositionAndColor(t *testing.T) {
	state := model.DefaultState(testNow)

	state, first, _ := timerstate.AddTimer(state, "a", model.TimerSpec{Title: "Write", DurationMinutes: 25, DailyLimit: 4})
	state, second, events := timerstate.AddTimer(state, "b", model.TimerSpec{Title: "Read", DurationMinutes: 10, DailyLimit: 2, Color: "#000000"})

	if first.Position != 0 || second.Position != 1 {
		t.Fatalf("expected positions 0 and 1, got %d and %d", first.Position, second.Position)
	}
	if first.Color != model.TimerColors[0] {
		t.Fatalf("expected palette color for empty color, got %s", first.Color)
	}
	if second.Color != "#000000" {
		t.Fatalf("expected explicit color kept, got %s", second.Color)
	}
	if second.UsedToday != 0 {
		t.Fatalf("expected usedToday 0, got %d", second.UsedToday)
	}
	if len(state.Timers) != 2 {
		t.Fatalf("expected 2 timers, got %d", len(state.Timers))
	}
	if len(events) != 1 || events[0].Type != timerstate.EventTimerAdded {
		t.Fatalf("expected timer_added event, got %+v", events)
	}
}

func TestCommandsDoNotMutateInput(t *testing.T) {
	state := stateWithTimers(t, timerFixture("a", 25, 4, 0), timerFixture("b", 5, 1, 0))
	before := state.Clone()

	_, _, _ = timerstate.StartTimer(state, "a")
	_, _, _ = timerstate.DeleteTimer(state, "a")
	_, _, _ = timerstate.ResetTimer(state, "b")
	_, _ = timerstate.Rollover(state, "2099-01-01")

	if !reflect.DeepEqual(state, before) {
		t.Fatalf("input state was modified: %+v", state)
	}
}

func TestStartTimerBlockedDuringBreak(t *testing.T) {
	for _, phase := range []model.Phase{model.PhaseBreak, model.PhaseBreakPending} {
		state := stateWithTimers(t, timerFixture("a", 25, 4, 0))
		state.Countdown = model.Countdown{Phase: phase, TimerID: "a", Remaining: 120}

		next, events, err := timerstate.StartTimer(state, "a")
		if !errors.Is(err, timerstate.ErrBreakActive) {
			t.Fatalf("phase %s: expected ErrBreakActive, got %v", phase, err)
		}
		if !reflect.DeepEqual(next, state) {
			t.Fatalf("phase %s: state changed on rejected start", phase)
		}
		if len(events) != 0 {
			t.Fatalf("phase %s: expected no events, got %+v", phase, events)
		}
	}
}

func TestStartTimerRejectsUnknownAndLimitReached(t *testing.T) {
	state := stateWithTimers(t, timerFixture("a", 25, 2, 2), timerFixture("b", 25, 3, 5))

	if _, _, err := timerstate.StartTimer(state, "missing"); !errors.Is(err, timerstate.ErrTimerNotFound) {
		t.Fatalf("expected ErrTimerNotFound, got %v", err)
	}
	for _, id := range []string{"a", "b"} {
		next, _, err := timerstate.StartTimer(state, id)
		if !errors.Is(err, timerstate.ErrDailyLimitReached) {
			t.Fatalf("timer %s: expected ErrDailyLimitReached, got %v", id, err)
		}
		if !reflect.DeepEqual(next, state) {
			t.Fatalf("timer %s: state changed on rejected start", id)
		}
	}
}

func TestStartingAnotherTimerSwitchesWithoutCredit(t *testing.T) {
	state := stateWithTimers(t, timerFixture("a", 25, 4, 0), timerFixture("b", 10, 4, 0))

	state = mustStart(t, state, "a")
	state = tickN(state, 30, timerstate.BreakPolicyAuto)

	next, events, err := timerstate.StartTimer(state, "b")
	if err != nil {
		t.Fatalf("start b: %v", err)
	}
	active := next.ActiveTimer()
	if active == nil || active.ID != "b" || active.TimeRemaining != 600 || !active.IsRunning {
		t.Fatalf("expected fresh running countdown for b, got %+v", active)
	}
	a, _, _ := next.FindTimer("a")
	if a.UsedToday != 0 {
		t.Fatalf("expected a.usedToday 0 after switch, got %d", a.UsedToday)
	}
	if len(events) != 2 || events[0].Type != timerstate.EventTimerSwitched {
		t.Fatalf("expected timer_switched then timer_started, got %+v", events)
	}
}

func TestPauseThenStartResumes(t *testing.T) {
	state := stateWithTimers(t, timerFixture("a", 25, 4, 0))
	state = mustStart(t, state, "a")
	state = tickN(state, 100, timerstate.BreakPolicyAuto)

	state, events := timerstate.PauseTimer(state, "a")
	if len(events) != 1 || state.Countdown.Phase != model.PhasePaused {
		t.Fatalf("expected paused, got %+v", state.Countdown)
	}

	paused := tickN(state, 10, timerstate.BreakPolicyAuto)
	if paused.Countdown.Remaining != 1400 {
		t.Fatalf("paused timer should not tick, remaining %d", paused.Countdown.Remaining)
	}

	resumed, events, err := timerstate.StartTimer(paused, "a")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	active := resumed.ActiveTimer()
	if active == nil || !active.IsRunning || active.IsPaused {
		t.Fatalf("expected running after resume, got %+v", active)
	}
	if active.TimeRemaining != 1400 {
		t.Fatalf("expected remaining 1400 after resume, got %d", active.TimeRemaining)
	}
	if len(events) != 1 || events[0].Type != timerstate.EventTimerResumed {
		t.Fatalf("expected timer_resumed, got %+v", events)
	}
}

func TestPauseIgnoresOtherOrIdleTimers(t *testing.T) {
	state := stateWithTimers(t, timerFixture("a", 25, 4, 0), timerFixture("b", 25, 4, 0))
	if next, events := timerstate.PauseTimer(state, "a"); len(events) != 0 || !reflect.DeepEqual(next, state) {
		t.Fatal("pause on idle state should be a no-op")
	}
	state = mustStart(t, state, "a")
	if next, events := timerstate.PauseTimer(state, "b"); len(events) != 0 || !reflect.DeepEqual(next, state) {
		t.Fatal("pause of a non-active id should be a no-op")
	}
}

func TestFullCountdownStartsBreak(t *testing.T) {
	state := stateWithTimers(t, timerFixture("a", 25, 4, 0))
	state = mustStart(t, state, "a")

	state = tickN(state, 25*60-1, timerstate.BreakPolicyAuto)
	if state.Countdown.Phase != model.PhaseRunning || state.Countdown.Remaining != 1 {
		t.Fatalf("expected one second left, got %+v", state.Countdown)
	}

	state, events := timerstate.Tick(state, testNow, timerstate.BreakPolicyAuto)
	if state.ActiveTimer() != nil {
		t.Fatal("expected active timer cleared")
	}
	breakTimer := state.BreakTimer()
	if !breakTimer.IsActive || breakTimer.TimeRemaining != 300 {
		t.Fatalf("expected 300s break, got %+v", breakTimer)
	}
	if breakTimer.CompletedTimerID == nil || *breakTimer.CompletedTimerID != "a" {
		t.Fatalf("expected completedTimerId a, got %v", breakTimer.CompletedTimerID)
	}
	timer, _, _ := state.FindTimer("a")
	if timer.UsedToday != 1 {
		t.Fatalf("expected usedToday 1, got %d", timer.UsedToday)
	}
	if len(state.CompletedTimers) != 1 {
		t.Fatalf("expected one completion record, got %d", len(state.CompletedTimers))
	}
	record := state.CompletedTimers[0]
	if record.TimerTitle != "Timer a" || record.DurationMinutes != 25 || !record.CompletedAt.Equal(testNow) {
		t.Fatalf("unexpected completion record %+v", record)
	}

	completions := 0
	for _, event := range events {
		if event.Type == timerstate.EventTimerCompleted {
			completions++
		}
	}
	if completions != 1 {
		t.Fatalf("expected exactly one completion event, got %d", completions)
	}
}

func TestBreakCountsDownToIdle(t *testing.T) {
	state := stateWithTimers(t, timerFixture("a", 1, 4, 0))
	state.GlobalPauseDurationMinutes = 2
	state = mustStart(t, state, "a")
	state = tickN(state, 60, timerstate.BreakPolicyAuto)

	if state.Countdown.Phase != model.PhaseBreak || state.Countdown.Remaining != 120 {
		t.Fatalf("expected 120s break, got %+v", state.Countdown)
	}

	state = tickN(state, 119, timerstate.BreakPolicyAuto)
	if state.Countdown.Phase != model.PhaseBreak {
		t.Fatalf("break ended early: %+v", state.Countdown)
	}
	state, events := timerstate.Tick(state, testNow, timerstate.BreakPolicyAuto)
	if state.Countdown.Phase != model.PhaseIdle {
		t.Fatalf("expected idle after break, got %+v", state.Countdown)
	}
	breakTimer := state.BreakTimer()
	if breakTimer.IsActive || breakTimer.TimeRemaining != 0 || breakTimer.CompletedTimerID != nil {
		t.Fatalf("expected fully inactive break, got %+v", breakTimer)
	}
	if len(events) != 1 || events[0].Type != timerstate.EventBreakCompleted || !events[0].Notifiable() {
		t.Fatalf("expected notifiable break_completed, got %+v", events)
	}
}

func TestManualBreakPolicyWaitsForStart(t *testing.T) {
	state := stateWithTimers(t, timerFixture("a", 1, 4, 0))
	state = mustStart(t, state, "a")
	state = tickN(state, 60, timerstate.BreakPolicyManual)

	if state.Countdown.Phase != model.PhaseBreakPending {
		t.Fatalf("expected break_pending, got %+v", state.Countdown)
	}
	waiting := tickN(state, 30, timerstate.BreakPolicyManual)
	if !reflect.DeepEqual(waiting, state) {
		t.Fatal("pending break should not tick")
	}
	if _, _, err := timerstate.StartTimer(state, "a"); !errors.Is(err, timerstate.ErrBreakActive) {
		t.Fatalf("expected start blocked while break pending, got %v", err)
	}

	started, _, err := timerstate.StartBreakCountdown(state)
	if err != nil {
		t.Fatalf("start break: %v", err)
	}
	breakTimer := started.BreakTimer()
	if !breakTimer.IsActive || breakTimer.TimeRemaining != 300 || *breakTimer.CompletedTimerID != "a" {
		t.Fatalf("unexpected break after manual start %+v", breakTimer)
	}
}

func TestStartBreakCountdownRejectedWhileTimerActive(t *testing.T) {
	state := stateWithTimers(t, timerFixture("a", 25, 4, 0))
	state = mustStart(t, state, "a")
	if _, _, err := timerstate.StartBreakCountdown(state); !errors.Is(err, timerstate.ErrTimerActive) {
		t.Fatalf("expected ErrTimerActive, got %v", err)
	}
}

func TestStopBreakTimerSkips(t *testing.T) {
	state := stateWithTimers(t, timerFixture("a", 25, 4, 0))
	state.Countdown = model.Countdown{Phase: model.PhaseBreak, TimerID: "a", Remaining: 250}

	state, events := timerstate.StopBreakTimer(state)
	if state.Countdown.Phase != model.PhaseIdle {
		t.Fatalf("expected idle, got %+v", state.Countdown)
	}
	if len(events) != 1 || events[0].Type != timerstate.EventBreakSkipped {
		t.Fatalf("expected break_skipped, got %+v", events)
	}
}

func TestStopTimerCancelsWithoutCredit(t *testing.T) {
	state := stateWithTimers(t, timerFixture("a", 25, 4, 0))
	state = mustStart(t, state, "a")
	state = tickN(state, 10, timerstate.BreakPolicyAuto)

	state, _ = timerstate.StopTimer(state)
	if state.Countdown.Phase != model.PhaseIdle {
		t.Fatalf("expected idle after stop, got %+v", state.Countdown)
	}
	timer, _, _ := state.FindTimer("a")
	if timer.UsedToday != 0 || len(state.CompletedTimers) != 0 {
		t.Fatal("stop must not credit usage")
	}
}

func TestPauseDurationDoesNotResizeRunningBreak(t *testing.T) {
	state := stateWithTimers(t, timerFixture("a", 25, 4, 0))
	state.Countdown = model.Countdown{Phase: model.PhaseBreak, Remaining: 200}

	next, _, err := timerstate.UpdateGlobalPauseDuration(state, 15)
	if err != nil {
		t.Fatalf("update pause: %v", err)
	}
	if next.Countdown.Remaining != 200 || next.GlobalPauseDurationMinutes != 15 {
		t.Fatalf("unexpected state %+v", next)
	}
	if _, _, err := timerstate.UpdateGlobalPauseDuration(state, 0); !errors.Is(err, timerstate.ErrInvalidPauseDuration) {
		t.Fatalf("expected ErrInvalidPauseDuration, got %v", err)
	}
}

func TestResetTimerClearsCountdownsReferencingIt(t *testing.T) {
	state := stateWithTimers(t, timerFixture("a", 25, 4, 3), timerFixture("b", 25, 4, 2))
	state.Countdown = model.Countdown{Phase: model.PhaseBreak, TimerID: "a", Remaining: 100}

	next, _, err := timerstate.ResetTimer(state, "a")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	a, _, _ := next.FindTimer("a")
	b, _, _ := next.FindTimer("b")
	if a.UsedToday != 0 || b.UsedToday != 2 {
		t.Fatalf("unexpected usage a=%d b=%d", a.UsedToday, b.UsedToday)
	}
	if next.Countdown.Phase != model.PhaseIdle {
		t.Fatalf("expected break cleared, got %+v", next.Countdown)
	}

	state = mustStart(t, stateWithTimers(t, timerFixture("a", 25, 4, 0), timerFixture("b", 25, 4, 0)), "b")
	next, _, _ = timerstate.ResetTimer(state, "a")
	if next.Countdown.TimerID != "b" || next.Countdown.Phase != model.PhaseRunning {
		t.Fatalf("reset of another timer must keep active timer, got %+v", next.Countdown)
	}
}

func TestDeleteTimerRenumbersAndClearsActive(t *testing.T) {
	state := stateWithTimers(t,
		timerFixture("a", 25, 4, 0),
		timerFixture("b", 25, 4, 0),
		timerFixture("c", 25, 4, 0),
		timerFixture("d", 25, 4, 0),
	)
	state = mustStart(t, state, "d")

	next, _, err := timerstate.DeleteTimer(state, "b")
	if err != nil {
		t.Fatalf("delete b: %v", err)
	}
	if next.Countdown.TimerID != "d" || next.Countdown.Phase != model.PhaseRunning {
		t.Fatalf("deleting a non-active timer must keep the active one, got %+v", next.Countdown)
	}
	assertOrder(t, next, "a", "c", "d")

	next, _, err = timerstate.DeleteTimer(next, "d")
	if err != nil {
		t.Fatalf("delete d: %v", err)
	}
	if next.ActiveTimer() != nil {
		t.Fatal("deleting the active timer must clear it")
	}
	assertOrder(t, next, "a", "c")

	if _, _, err := timerstate.DeleteTimer(next, "d"); !errors.Is(err, timerstate.ErrTimerNotFound) {
		t.Fatalf("expected ErrTimerNotFound, got %v", err)
	}
}

func TestUpdateTimerReplacesVerbatim(t *testing.T) {
	state := stateWithTimers(t, timerFixture("a", 25, 4, 1))
	updated := state.Timers[0]
	updated.Title = "Deep work"
	updated.DailyLimit = 6

	next, _, err := timerstate.UpdateTimer(state, updated)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !reflect.DeepEqual(next.Timers[0], updated) {
		t.Fatalf("expected %+v, got %+v", updated, next.Timers[0])
	}

	missing := updated
	missing.ID = "zzz"
	if same, _, err := timerstate.UpdateTimer(state, missing); !errors.Is(err, timerstate.ErrTimerNotFound) || !reflect.DeepEqual(same, state) {
		t.Fatalf("expected no-op for missing id, got %v", err)
	}
}

func TestReorderedBuildsContiguousPositions(t *testing.T) {
	state := stateWithTimers(t, timerFixture("a", 25, 4, 0), timerFixture("b", 25, 4, 0), timerFixture("c", 25, 4, 0))

	ordered, err := timerstate.Reordered(state.Timers, []string{"c", "a", "b"})
	if err != nil {
		t.Fatalf("reordered: %v", err)
	}
	next, _ := timerstate.UpdateTimerPositions(state, ordered)
	assertOrder(t, next, "c", "a", "b")

	for _, ids := range [][]string{{"a", "b"}, {"a", "a", "b"}, {"a", "b", "x"}} {
		if _, err := timerstate.Reordered(state.Timers, ids); !errors.Is(err, timerstate.ErrInvalidOrder) {
			t.Fatalf("ids %v: expected ErrInvalidOrder, got %v", ids, err)
		}
	}
}

func TestUpdateTimerPositionsClearsOrphanedCountdown(t *testing.T) {
	state := stateWithTimers(t, timerFixture("a", 25, 4, 0), timerFixture("b", 1, 4, 0))
	state, _, err := timerstate.StartTimer(state, "b")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	next, _ := timerstate.UpdateTimerPositions(state, state.Timers[:1])
	if next.Countdown.Phase != model.PhaseIdle {
		t.Fatalf("expected idle countdown, got %+v", next.Countdown)
	}

	kept, _ := timerstate.UpdateTimerPositions(state, state.Timers)
	if kept.Countdown != state.Countdown {
		t.Fatalf("expected countdown kept, got %+v", kept.Countdown)
	}

	breaking := state
	breaking.Countdown = model.Countdown{Phase: model.PhaseBreak, TimerID: "b", Remaining: 120}
	afterBreak, _ := timerstate.UpdateTimerPositions(breaking, breaking.Timers[:1])
	if afterBreak.Countdown != breaking.Countdown {
		t.Fatalf("expected running break kept, got %+v", afterBreak.Countdown)
	}
}

func TestRolloverResetsOncePerDay(t *testing.T) {
	state := stateWithTimers(t, timerFixture("a", 25, 4, 3), timerFixture("b", 25, 4, 1))
	state.LastResetDay = "2026-03-13"

	next, events := timerstate.Rollover(state, "2026-03-14")
	if len(events) != 1 || events[0].Type != timerstate.EventDailyReset {
		t.Fatalf("expected one daily_reset event, got %+v", events)
	}
	for _, timer := range next.Timers {
		if timer.UsedToday != 0 {
			t.Fatalf("expected usage reset, got %+v", timer)
		}
	}
	if next.LastResetDay != "2026-03-14" {
		t.Fatalf("expected lastResetDay updated, got %s", next.LastResetDay)
	}

	again, events := timerstate.Rollover(next, "2026-03-14")
	if len(events) != 0 || !reflect.DeepEqual(again, next) {
		t.Fatal("second rollover on the same day must be a no-op")
	}
}

func TestProgress(t *testing.T) {
	cases := []struct {
		remaining, total int
		want             float64
	}{
		{1500, 1500, 0},
		{750, 1500, 50},
		{0, 1500, 100},
		{10, 0, 0},
		{2000, 1500, 0},
	}
	for _, tc := range cases {
		if got := timerstate.Progress(tc.remaining, tc.total); got != tc.want {
			t.Fatalf("Progress(%d, %d) = %v, want %v", tc.remaining, tc.total, got, tc.want)
		}
	}
}

func TestTimeUntilResetFormatting(t *testing.T) {
	loc := time.FixedZone("test", 2*60*60)
	now := time.Date(2026, 3, 14, 21, 15, 30, 0, loc)

	got := timerstate.FormatUntilReset(timerstate.TimeUntilReset(now))
	if got != "2h 44m" {
		t.Fatalf("expected 2h 44m, got %s", got)
	}
	if timerstate.FormatClock(1499) != "24:59" {
		t.Fatalf("unexpected clock %s", timerstate.FormatClock(1499))
	}
	if timerstate.FormatMinutes(90) != "1 hr 30 min" || timerstate.FormatMinutes(120) != "2 hr" || timerstate.FormatMinutes(5) != "5 min" {
		t.Fatal("unexpected minute formatting")
	}
}

func TestParseBreakPolicy(t *testing.T) {
	if policy, err := timerstate.ParseBreakPolicy(""); err != nil || policy != timerstate.BreakPolicyAuto {
		t.Fatalf("expected auto default, got %s %v", policy, err)
	}
	if policy, err := timerstate.ParseBreakPolicy("manual"); err != nil || policy != timerstate.BreakPolicyManual {
		t.Fatalf("expected manual, got %s %v", policy, err)
	}
	if _, err := timerstate.ParseBreakPolicy("sometimes"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func timerFixture(id string, minutes, limit, used int) model.Timer {
	return model.Timer{
		ID:              id,
		Title:           "Timer " + id,
		DurationMinutes: minutes,
		DailyLimit:      limit,
		UsedToday:       used,
		Color:           "#4CAF50",
	}
}

func stateWithTimers(t *testing.T, timers ...model.Timer) model.State {
	t.Helper()
	state := model.DefaultState(testNow)
	for i, timer := range timers {
		timer.Position = i
		state.Timers = append(state.Timers, timer)
	}
	return state
}

func mustStart(t *testing.T, state model.State, id string) model.State {
	t.Helper()
	next, _, err := timerstate.StartTimer(state, id)
	if err != nil {
		t.Fatalf("start %s: %v", id, err)
	}
	return next
}

func tickN(state model.State, n int, policy timerstate.BreakPolicy) model.State {
	for i := 0; i < n; i++ {
		state, _ = timerstate.Tick(state, testNow, policy)
	}
	return state
}

func assertOrder(t *testing.T, state model.State, ids ...string) {
	t.Helper()
	if len(state.Timers) != len(ids) {
		t.Fatalf("expected %d timers, got %d", len(ids), len(state.Timers))
	}
	for i, id := range ids {
		if state.Timers[i].ID != id || state.Timers[i].Position != i {
			t.Fatalf("position %d: expected %s, got %+v", i, id, state.Timers[i])
		}
	}
}
