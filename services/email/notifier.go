package emailsvc

import (
	"context"
	"net/mail"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/reminder"
)

const reminderTemplate = "lesson_reminder"

// ReminderNotifier delivers lesson reminders by email.
type ReminderNotifier struct {
	mailSvc core.EmailService
	to      mail.Address
}

var _ reminder.Notifier = (*ReminderNotifier)(nil)

func NewReminderNotifier(mailSvc core.EmailService, to string) (*ReminderNotifier, error) {
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "reminder.emailTo", Error: err.Error()})
	}
	return &ReminderNotifier{mailSvc: mailSvc, to: *addr}, nil
}

func (n *ReminderNotifier) Notify(ctx context.Context, r reminder.Reminder) error {
	return n.mailSvc.Send(ctx, &core.EmailMessage{
		To:           []mail.Address{n.to},
		Subject:      r.Title,
		TemplateName: reminderTemplate,
		TemplateData: r,
	})
}
