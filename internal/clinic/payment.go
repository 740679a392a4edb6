package clinic

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// CreatePayment records a completed payment against an appointment.
func (s *Service) CreatePayment(ctx context.Context, appointmentID int64, amount float64) (*Payment, error) {
	if appointmentID <= 0 {
		return nil, validationError("appointment_id is required")
	}
	if amount <= 0 {
		return nil, validationError("amount must be positive")
	}

	if _, err := s.repo.GetAppointmentByID(ctx, appointmentID); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	var p *Payment
	var err error
	for attempt := 1; attempt <= maxTransactionIDAttempts; attempt++ {
		p, err = s.repo.CreatePayment(ctx, Payment{
			AppointmentID: appointmentID,
			Amount:        amount,
			Status:        PaymentCompleted,
			TransactionID: s.newTxnID(),
		})
		if !errors.Is(err, ErrDuplicateTransactionID) {
			break
		}
		s.logger.Printf("transaction id collision appointment_id=%d attempt=%d", appointmentID, attempt)
	}
	if err != nil {
		if errors.Is(err, ErrConstraint) {
			return nil, err
		}
		return nil, fmt.Errorf("create payment: %w", err)
	}

	s.logEvent(ctx, appointmentID, EventPaymentRecorded, map[string]any{
		"payment_id":     p.ID,
		"amount":         p.Amount,
		"transaction_id": p.TransactionID,
	})

	return p, nil
}

const maxTransactionIDAttempts = 3

// 36^12, the number of distinct 12 character base36 suffixes
const transactionIDSpace uint64 = 4738381338321616896

// newTransactionID returns "TXN" followed by twelve upper-case base36 characters.
func newTransactionID() string {
	raw := uuid.New()
	n := binary.BigEndian.Uint64(raw[8:]) % transactionIDSpace
	suffix := strings.ToUpper(strconv.FormatUint(n, 36))
	return "TXN" + strings.Repeat("0", 12-len(suffix)) + suffix
}
