package pkg

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// ReservationOutcomeTopic carries the result of every reservation submit,
	// including submits whose wizard was discarded before they finished.
	ReservationOutcomeTopic = "reservations.outcomes"
	// ReservationStatusTopic carries status changes made from the front desk.
	ReservationStatusTopic = "reservations.status"

	EventReservationCreated       = "reservation.created"
	EventReservationFailed        = "reservation.failed"
	EventReservationStatusChanged = "reservation.status.changed"
)

// ReservationOutcomeEvent reports how a submit ended.
type ReservationOutcomeEvent struct {
	EventType     string    `json:"event_type"`
	OutcomeID     string    `json:"outcome_id"`
	SessionID     string    `json:"session_id,omitempty"`
	ReservationID string    `json:"reservation_id,omitempty"`
	TableNumber   string    `json:"table_number"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	PartySize     int       `json:"party_size"`
	Error         string    `json:"error,omitempty"`
	Detached      bool      `json:"detached"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// ReservationStatusEvent reports a status update made by staff.
type ReservationStatusEvent struct {
	EventType     string    `json:"event_type"`
	ReservationID string    `json:"reservation_id"`
	Status        string    `json:"status"`
	ChangedBy     string    `json:"changed_by,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// DecodeReservationOutcome parses an outcome payload.
func DecodeReservationOutcome(data []byte) (ReservationOutcomeEvent, error) {
	var evt ReservationOutcomeEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return evt, fmt.Errorf("cannot decode reservation outcome: %w", err)
	}
	return evt, nil
}

func DecodeReservationStatus(data []byte) (ReservationStatusEvent, error) {
	var evt ReservationStatusEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return evt, fmt.Errorf("cannot decode reservation status: %w", err)
	}
	return evt, nil
}
