package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestTerminal(t *testing.T) {
	tests := []struct {
		stage Stage
		typ   Type
		want  bool
	}{
		{StageCompleted, TypeStepComplete, true},
		{StageFailed, TypeError, true},
		{StageCompleted, TypeLog, false},
		{StageTesting, TypeStepComplete, false},
		{StageTesting, TypeError, false},
	}
	for _, tt := range tests {
		ev := New("j", tt.stage, tt.typ, "")
		if got := ev.Terminal(); got != tt.want {
			t.Errorf("Terminal(%s/%s) = %v, want %v", tt.stage, tt.typ, got, tt.want)
		}
	}
}

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe("job-1")

	bus.Publish(New("job-1", StagePlanning, TypeStepStart, "planning"))
	bus.Publish(New("job-1", StageCompleted, TypeStepComplete, "done"))

	var got []Event
	for ev := range ch {
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("received %d events, want 2", len(got))
	}
	if !got[1].Terminal() {
		t.Error("stream did not end with a terminal event")
	}
}

func TestExactlyOneTerminalEvent(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe("job-1")

	bus.Publish(New("job-1", StageFailed, TypeError, "first failure"))
	// A bug upstream publishes a second terminal; it must be swallowed.
	bus.Publish(New("job-1", StageCompleted, TypeStepComplete, "late success"))

	var terminals int
	for ev := range ch {
		if ev.Terminal() {
			terminals++
		}
	}
	if terminals != 1 {
		t.Errorf("terminal events = %d, want exactly 1", terminals)
	}
	if bus.Dropped() == 0 {
		t.Error("late publish not counted as dropped")
	}
}

func TestSubscribeAfterTermination(t *testing.T) {
	bus := NewBus()
	bus.Subscribe("job-1")
	bus.Publish(New("job-1", StageCompleted, TypeStepComplete, "done"))

	ch := bus.Subscribe("job-1")
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received event on post-termination subscription")
		}
	case <-time.After(time.Second):
		t.Error("post-termination subscription not closed")
	}
}

func TestJobIsolation(t *testing.T) {
	bus := NewBus()
	ch1 := bus.Subscribe("job-1")
	ch2 := bus.Subscribe("job-2")

	bus.Publish(New("job-1", StageCompleted, TypeStepComplete, "done"))

	if _, ok := <-ch1; !ok {
		t.Fatal("job-1 subscriber got nothing")
	}
	select {
	case ev := <-ch2:
		t.Errorf("job-2 subscriber got job-1 event: %+v", ev)
	default:
	}
	bus.Forget("job-2")
	if _, ok := <-ch2; ok {
		t.Error("Forget did not close the channel")
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus()
	bus.Subscribe("job-1") // never drained

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer+10; i++ {
			bus.Publish(New("job-1", StageTesting, TypeLog, "tick"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if bus.Dropped() == 0 {
		t.Error("overflow not counted")
	}
}

func TestStreamEnvelopeFraming(t *testing.T) {
	bus := NewBus()
	out := bus.Stream(context.Background(), "job-1")

	bus.Publish(New("job-1", StageCompleted, TypeStepComplete, "all done"))

	frame, ok := <-out
	if !ok {
		t.Fatal("stream closed without frames")
	}
	// The data value is the event's JSON carried as a string, not a
	// nested object.
	var envelope map[string]string
	if err := json.Unmarshal(frame, &envelope); err != nil {
		t.Fatalf("frame not valid JSON: %v", err)
	}
	body, ok := envelope["data"]
	if !ok {
		t.Fatalf("frame missing data key: %s", frame)
	}
	var ev Event
	if err := json.Unmarshal([]byte(body), &ev); err != nil {
		t.Fatalf("data is not a JSON-encoded event: %v", err)
	}
	if ev.JobID != "job-1" || ev.Content != "all done" {
		t.Errorf("event = %+v", ev)
	}

	if _, ok := <-out; ok {
		t.Error("stream still open after terminal event")
	}
}

func TestStreamStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := NewBus()
	out := bus.Stream(ctx, "job-1")
	cancel()

	select {
	case _, ok := <-out:
		if ok {
			t.Error("got frame after cancel")
		}
	case <-time.After(time.Second):
		t.Error("stream did not close on cancel")
	}
}
