package snapshot_test

import (
	"encoding/base64"
	"errors"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"pomodoroplaza/internal/model"
	"pomodoroplaza/internal/snapshot"
)

var testNow = time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)

func TestShareRoundTripPerPhase(t *testing.T) {
	countdowns := []model.Countdown{
		{Phase: model.PhaseIdle},
		{Phase: model.PhaseRunning, TimerID: "t1", Remaining: 1234},
		{Phase: model.PhasePaused, TimerID: "t2", Remaining: 59},
		{Phase: model.PhaseBreak, TimerID: "t1", Remaining: 300},
		{Phase: model.PhaseBreak, Remaining: 42},
		{Phase: model.PhaseBreakPending, TimerID: "t2"},
	}

	for _, countdown := range countdowns {
		state := sampleState()
		state.Countdown = countdown

		token, err := snapshot.EncodeShare(state)
		if err != nil {
			t.Fatalf("encode %s: %v", countdown.Phase, err)
		}
		decoded, ok := snapshot.DecodeShare(token, testNow)
		if !ok {
			t.Fatalf("decode %s failed", countdown.Phase)
		}
		if !reflect.DeepEqual(decoded, state) {
			t.Fatalf("round trip mismatch for %s:\nwant %+v\ngot  %+v", countdown.Phase, state, decoded)
		}
	}
}

func TestDecodeShareRejectsGarbage(t *testing.T) {
	inputs := []string{
		"",
		"not base64 at all!!",
		base64.StdEncoding.EncodeToString([]byte("%zz")),
		base64.StdEncoding.EncodeToString([]byte(url.QueryEscape("{\"timers\": 12}"))),
		base64.StdEncoding.EncodeToString([]byte(url.QueryEscape("[1,2,3]"))),
	}
	for _, input := range inputs {
		if _, ok := snapshot.DecodeShare(input, testNow); ok {
			t.Fatalf("expected decode failure for %q", input)
		}
	}
}

func TestDecodeShareAcceptsBrowserLink(t *testing.T) {
	raw := `{"timers":[{"id":"k3j9x0aa","title":"Deep work","durationMinutes":25,"dailyLimit":4,"usedToday":1,"color":"#FF5252","position":0}],` +
		`"activeTimer":null,"breakTimer":{"isActive":true,"timeRemaining":120,"completedTimerId":"k3j9x0aa"},` +
		`"lastResetDay":"2026-05-02","globalPauseDurationMinutes":5}`
	escaped := strings.ReplaceAll(url.QueryEscape(raw), "+", "%20")
	token := base64.StdEncoding.EncodeToString([]byte(escaped))

	state, ok := snapshot.StateFromURL("https://plaza.example/?state="+url.QueryEscape(token), testNow)
	if !ok {
		t.Fatal("expected browser link to decode")
	}
	if len(state.Timers) != 1 || state.Timers[0].Title != "Deep work" {
		t.Fatalf("unexpected timers %+v", state.Timers)
	}
	if state.Countdown.Phase != model.PhaseBreak || state.Countdown.Remaining != 120 || state.Countdown.TimerID != "k3j9x0aa" {
		t.Fatalf("unexpected countdown %+v", state.Countdown)
	}
	if state.CompletedTimers == nil || len(state.CompletedTimers) != 0 {
		t.Fatalf("expected empty history, got %+v", state.CompletedTimers)
	}
}

func TestShareTokenReadableByBrowser(t *testing.T) {
	state := sampleState()
	state.Timers = append(state.Timers, model.Timer{ID: "t3", Title: "C++ code review", DurationMinutes: 15, DailyLimit: 2, Color: "#4CAF50", Position: 2})

	token, err := snapshot.EncodeShare(state)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	if strings.ContainsAny(string(raw), "+ ") {
		t.Fatalf("escaped payload must not carry '+' or spaces: %s", raw)
	}

	// decodeURIComponent leaves '+' alone, as PathUnescape does
	unescaped, err := url.PathUnescape(string(raw))
	if err != nil {
		t.Fatalf("unescape: %v", err)
	}
	decoded, err := snapshot.Unmarshal([]byte(unescaped), testNow)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	titles := []string{decoded.Timers[0].Title, decoded.Timers[1].Title, decoded.Timers[2].Title}
	if !reflect.DeepEqual(titles, []string{"Write & think", "Read 100%", "C++ code review"}) {
		t.Fatalf("titles changed in transit: %v", titles)
	}
}

func TestShareURLSetsStateParam(t *testing.T) {
	state := sampleState()
	link, err := snapshot.ShareURL("https://plaza.example/app?theme=dark", state)
	if err != nil {
		t.Fatalf("share url: %v", err)
	}
	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	if parsed.Query().Get("theme") != "dark" {
		t.Fatalf("existing query lost: %s", link)
	}
	decoded, ok := snapshot.StateFromURL(link, testNow)
	if !ok || !reflect.DeepEqual(decoded, state) {
		t.Fatalf("link did not round trip: %s", link)
	}
}

func TestUnmarshalRejectsInconsistentCountdowns(t *testing.T) {
	cases := map[string]string{
		"timer during break": `{"timers":[{"id":"a","title":"A","durationMinutes":1,"dailyLimit":1,"usedToday":0,"position":0}],` +
			`"activeTimer":{"id":"a","timeRemaining":10,"isRunning":true,"isPaused":false},"breakTimer":{"isActive":true,"timeRemaining":10,"completedTimerId":null}}`,
		"running and paused": `{"timers":[{"id":"a","title":"A","durationMinutes":1,"dailyLimit":1,"usedToday":0,"position":0}],` +
			`"activeTimer":{"id":"a","timeRemaining":10,"isRunning":true,"isPaused":true},"breakTimer":{"isActive":false,"timeRemaining":0,"completedTimerId":null}}`,
		"unknown active timer": `{"timers":[],"activeTimer":{"id":"ghost","timeRemaining":10,"isRunning":true,"isPaused":false}}`,
		"duplicate ids": `{"timers":[{"id":"a","title":"A","durationMinutes":1,"dailyLimit":1,"usedToday":0,"position":0},` +
			`{"id":"a","title":"B","durationMinutes":1,"dailyLimit":1,"usedToday":0,"position":1}]}`,
		"bad day": `{"timers":[],"lastResetDay":"yesterday"}`,
	}
	for name, payload := range cases {
		if _, err := snapshot.Unmarshal([]byte(payload), testNow); !errors.Is(err, snapshot.ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
}

func TestUnmarshalFillsDefaults(t *testing.T) {
	state, err := snapshot.Unmarshal([]byte(`{}`), testNow)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(state, model.DefaultState(testNow)) {
		t.Fatalf("expected default state, got %+v", state)
	}
}

func TestMarshalYAML(t *testing.T) {
	payload, err := snapshot.MarshalYAML(sampleState())
	if err != nil {
		t.Fatalf("marshal yaml: %v", err)
	}
	text := string(payload)
	for _, want := range []string{"timers:", "global_pause_duration_minutes: 7", "last_reset_day:", "2026-05-01"} {
		if !strings.Contains(text, want) {
			t.Fatalf("yaml missing %q:\n%s", want, text)
		}
	}
}

func sampleState() model.State {
	state := model.DefaultState(testNow)
	state.LastResetDay = "2026-05-01"
	state.GlobalPauseDurationMinutes = 7
	state.Timers = append(state.Timers,
		model.Timer{ID: "t1", Title: "Write & think", DurationMinutes: 25, DailyLimit: 4, UsedToday: 2, Color: "#FF5252", Position: 0},
		model.Timer{ID: "t2", Title: "Read 100%", DurationMinutes: 50, DailyLimit: 1, UsedToday: 0, Color: "#2196F3", Position: 1},
	)
	state.CompletedTimers = append(state.CompletedTimers, model.CompletedTimer{
		TimerID:         "t1",
		TimerTitle:      "Write & think",
		CompletedAt:     time.Date(2026, 5, 1, 17, 45, 12, 0, time.UTC),
		DurationMinutes: 25,
	})
	return state
}
