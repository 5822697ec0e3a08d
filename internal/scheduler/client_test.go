package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

type schedulerConfigStub struct {
	redisURL    string
	queue       string
	concurrency int
}

func (s schedulerConfigStub) GetRedisURL() string       { return s.redisURL }
func (s schedulerConfigStub) GetRedisTLSInsecure() bool { return false }
func (s schedulerConfigStub) GetAsynqQueueName() string { return s.queue }
func (s schedulerConfigStub) GetAsynqConcurrency() int  { return s.concurrency }

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(schedulerConfigStub{}); err == nil {
		t.Fatal("expected error without redis url")
	}
}

func TestEnqueueBirthdaySweep(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(schedulerConfigStub{redisURL: "redis://" + srv.Addr(), queue: "reminders"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	date := time.Date(2026, 6, 18, 0, 0, 0, 0, time.UTC)
	if err := client.EnqueueBirthdaySweep(context.Background(), date); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	var taskKeys int
	for _, key := range srv.Keys() {
		if strings.HasPrefix(key, "asynq:{reminders}:") {
			taskKeys++
		}
	}
	if taskKeys == 0 {
		t.Fatalf("no task enqueued on the reminders queue; keys: %v", srv.Keys())
	}
}

func TestBirthdayReminderPayloadRoundTrip(t *testing.T) {
	task, err := NewBirthdayReminderTask(BirthdayReminderPayload{Date: "2026-06-18"})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskBirthdayReminder {
		t.Fatalf("task type = %q, want %q", task.Type(), TaskBirthdayReminder)
	}

	payload, err := ParseBirthdayReminderPayload(task)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.Date != "2026-06-18" {
		t.Fatalf("date = %q, want 2026-06-18", payload.Date)
	}
}
