package clinic

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/hackgods/clinic-booking/internal/notify"
	redisclient "github.com/hackgods/clinic-booking/internal/redis"
)

const (
	EventAppointmentBooked        = "APPOINTMENT_BOOKED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
	EventPaymentRecorded          = "PAYMENT_RECORDED"
)

type Service struct {
	repo       Repository
	locker     redisclient.Locker
	notifier   notify.Notifier
	logger     *log.Logger
	bcryptCost int
	now        func() time.Time
	newTxnID   func() string
}

func NewService(repo Repository, locker redisclient.Locker, notifier notify.Notifier, logger *log.Logger, bcryptCost int) *Service {
	return &Service{
		repo:       repo,
		locker:     locker,
		notifier:   notifier,
		logger:     logger,
		bcryptCost: bcryptCost,
		now:        time.Now,
		newTxnID:   newTransactionID,
	}
}

// notify never fails the calling operation; delivery problems are only logged.
func (s *Service) notify(ctx context.Context, userID int64, subject, html string) {
	err := s.notifier.Notify(ctx, notify.Message{
		RecipientUserID: userID,
		Subject:         subject,
		HTML:            html,
	})
	if err != nil {
		s.logger.Printf("notify user_id=%d subject=%q failed: %v", userID, subject, err)
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID int64, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	apptID := appointmentID

	ev := Event{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Printf("failed to insert event log %s for appointment %d: %v", eventType, appointmentID, err)
	}
}
