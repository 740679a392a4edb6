package clinic

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hackgods/clinic-booking/internal/notify"
	redisclient "github.com/hackgods/clinic-booking/internal/redis"
)

// DayLayout is the date format reminders match against stored appointment dates.
const DayLayout = "2006-01-02"

const reminderMarkTTL = 72 * time.Hour

type Reminders struct {
	repo     Repository
	marker   redisclient.OnceMarker
	notifier notify.Notifier
	logger   *log.Logger
}

func NewReminders(repo Repository, marker redisclient.OnceMarker, notifier notify.Notifier, logger *log.Logger) *Reminders {
	return &Reminders{
		repo:     repo,
		marker:   marker,
		notifier: notifier,
		logger:   logger,
	}
}

// Send notifies the patient of every approved appointment on day, at most once per appointment.
func (r *Reminders) Send(ctx context.Context, day string) (int, error) {
	status := StatusApproved
	list, err := r.repo.ListAppointments(ctx, AppointmentFilter{Status: &status, Date: &day})
	if err != nil {
		return 0, fmt.Errorf("find appointments for %s: %w", day, err)
	}

	sent := 0
	for _, appt := range list {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		key := fmt.Sprintf("reminder:sent:%d", appt.ID)
		first, err := r.marker.MarkOnce(ctx, key, reminderMarkTTL)
		if err != nil {
			r.logger.Printf("reminder skipped appointment_id=%d: %v", appt.ID, err)
			continue
		}
		if !first {
			continue
		}

		subject, body, err := reminderMail(appt)
		if err != nil {
			r.logger.Printf("render reminder for appointment %d: %v", appt.ID, err)
			continue
		}

		err = r.notifier.Notify(ctx, notify.Message{RecipientUserID: appt.PatientID, Subject: subject, HTML: body})
		if err != nil {
			r.logger.Printf("reminder failed appointment_id=%d: %v", appt.ID, err)
			// let the next run retry
			if uerr := r.marker.Unmark(ctx, key); uerr != nil {
				r.logger.Printf("unmark reminder appointment_id=%d: %v", appt.ID, uerr)
			}
			continue
		}
		sent++
	}

	return sent, nil
}

// ReminderDay is the appointment date targeted by a run at now.
func ReminderDay(now time.Time, lead time.Duration) string {
	return now.Add(lead).Format(DayLayout)
}
