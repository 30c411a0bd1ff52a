package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pomodoroplaza/internal/notify"
)

type recordingNotifier struct {
	received []notify.Notification
	err      error
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) error {
	r.received = append(r.received, n)
	return r.err
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var got notify.Notification
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier := notify.NewWebhookNotifier(server.URL, time.Second)
	err := notifier.Notify(context.Background(), notify.Notification{
		App:   notify.AppName,
		Kind:  "timer_completed",
		Title: "Timer completed!",
		Body:  "Time for a break.",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.Kind != "timer_completed" || got.App != notify.AppName {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestWebhookNotifierReportsFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := notify.NewWebhookNotifier(server.URL, time.Second).Notify(context.Background(), notify.Notification{})
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestGateDropsWithoutPermission(t *testing.T) {
	inner := &recordingNotifier{}
	if err := notify.NewGate(false, inner).Notify(context.Background(), notify.Notification{Title: "x"}); err != nil {
		t.Fatalf("gate: %v", err)
	}
	if len(inner.received) != 0 {
		t.Fatal("denied gate must not forward")
	}
	if err := notify.NewGate(true, inner).Notify(context.Background(), notify.Notification{Title: "y"}); err != nil {
		t.Fatalf("gate: %v", err)
	}
	if len(inner.received) != 1 {
		t.Fatal("granted gate must forward")
	}
}

func TestMultiDeliversToAllAndReturnsFirstError(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("boom")}
	ok := &recordingNotifier{}
	err := notify.Multi{failing, ok}.Notify(context.Background(), notify.Notification{Title: "z"})
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(ok.received) != 1 {
		t.Fatal("second notifier should still receive the notification")
	}
}

func TestBuildRespectsPermission(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logger := log.New(io.Discard, "", 0)
	if err := notify.Build(false, server.URL, logger).Notify(context.Background(), notify.Notification{}); err != nil {
		t.Fatalf("denied: %v", err)
	}
	if err := notify.Build(true, server.URL, logger).Notify(context.Background(), notify.Notification{}); err != nil {
		t.Fatalf("granted: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected one webhook delivery, got %d", hits)
	}
}
