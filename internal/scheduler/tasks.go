package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskBirthdayReminder = "reminders.birthday"

// BirthdayReminderPayload carries the sweep date. Empty means the worker
// resolves "today" at processing time; manual triggers pin a specific day.
type BirthdayReminderPayload struct {
	// Date is the sweep's "today" in YYYY-MM-DD.
	Date string `json:"date"`
}

func NewBirthdayReminderTask(payload BirthdayReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBirthdayReminder, data), nil
}

func ParseBirthdayReminderPayload(task *asynq.Task) (BirthdayReminderPayload, error) {
	var payload BirthdayReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return BirthdayReminderPayload{}, err
	}
	return payload, nil
}
