package frontdesk

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"

	"github.com/appetiteclub/frontdesk/pkg"
	"github.com/appetiteclub/frontdesk/pkg/booking"
)

// Outcome records how a reservation submit ended. Outcomes are kept so a
// user who left the wizard while a submit was in flight still learns the
// result.
type Outcome struct {
	ID            uuid.UUID `json:"id" bson:"_id"`
	SessionID     string    `json:"-" bson:"session_id"`
	UserID        string    `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Success       bool      `json:"success" bson:"success"`
	Message       string    `json:"message" bson:"message"`
	ReservationID string    `json:"reservation_id,omitempty" bson:"reservation_id,omitempty"`
	TableNumber   string    `json:"table_number" bson:"table_number"`
	Date          string    `json:"date" bson:"date"`
	Time          string    `json:"time" bson:"time"`
	PartySize     int       `json:"party_size" bson:"party_size"`
	Detached      bool      `json:"detached" bson:"detached"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// NewOutcome builds the outcome of a submit for the given draft.
func NewOutcome(session *Session, draft booking.Draft, res *booking.Reservation, err error) *Outcome {
	o := &Outcome{
		ID:        uuid.New(),
		Date:      draft.ReservationDate,
		Time:      draft.ReservationTime,
		PartySize: draft.PartySize,
		CreatedAt: time.Now().UTC(),
	}
	if session != nil {
		o.SessionID = session.ID
		o.UserID = session.UserID
	}
	if draft.SelectedTable != nil {
		o.TableNumber = draft.SelectedTable.TableNumber
	}

	if err == nil && res != nil {
		o.Success = true
		o.ReservationID = res.ID
		o.Message = "Reservation created successfully!"
		return o
	}
	o.Message = outcomeMessage(err)
	return o
}

func outcomeMessage(err error) string {
	var conflict *booking.ConflictError
	var rejected *booking.ServerValidationError
	switch {
	case errors.As(err, &conflict):
		return "That table was just booked. Please choose another table."
	case errors.As(err, &rejected):
		return rejected.Message
	case errors.Is(err, booking.ErrUnauthorized):
		return "Your session expired. Please sign in again."
	default:
		return "Failed to create reservation"
	}
}

type OutcomeStore interface {
	Save(ctx context.Context, outcome *Outcome) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*Outcome, error)
}

// MemoryOutcomeStore keeps outcomes in process, newest first per session.
type MemoryOutcomeStore struct {
	mu       sync.RWMutex
	outcomes map[string][]*Outcome
	max      int
}

func NewMemoryOutcomeStore(maxPerSession int) *MemoryOutcomeStore {
	if maxPerSession <= 0 {
		maxPerSession = 50
	}
	return &MemoryOutcomeStore{
		outcomes: make(map[string][]*Outcome),
		max:      maxPerSession,
	}
}

func (s *MemoryOutcomeStore) Save(ctx context.Context, outcome *Outcome) error {
	if outcome == nil {
		return errors.New("outcome is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := append([]*Outcome{outcome}, s.outcomes[outcome.SessionID]...)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if len(list) > s.max {
		list = list[:s.max]
	}
	s.outcomes[outcome.SessionID] = list
	return nil
}

func (s *MemoryOutcomeStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]*Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.outcomes[sessionID]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	out := make([]*Outcome, len(list))
	copy(out, list)
	return out, nil
}

// Notifier delivers submit outcomes to the log, the outcome store and the
// event bus. Delivery failures are logged and never change the outcome.
type Notifier struct {
	store     OutcomeStore
	publisher events.Publisher
	logger    apt.Logger
}

func NewNotifier(store OutcomeStore, publisher events.Publisher, logger apt.Logger) *Notifier {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if store == nil {
		store = NewMemoryOutcomeStore(0)
	}
	return &Notifier{store: store, publisher: publisher, logger: logger}
}

func (n *Notifier) Notify(ctx context.Context, outcome *Outcome) {
	log := n.logger.With("outcome_id", outcome.ID.String(), "session_id", outcome.SessionID)
	if outcome.Success {
		log.Info("Reservation submit succeeded", "reservation_id", outcome.ReservationID, "detached", outcome.Detached)
	} else {
		log.Info("Reservation submit failed", "message", outcome.Message, "detached", outcome.Detached)
	}

	if err := n.store.Save(ctx, outcome); err != nil {
		log.Error("cannot store reservation outcome", "error", err)
	}

	n.publish(ctx, outcome, log)
}

func (n *Notifier) Recent(ctx context.Context, sessionID string, limit int) ([]*Outcome, error) {
	return n.store.ListBySession(ctx, sessionID, limit)
}

func (n *Notifier) publish(ctx context.Context, outcome *Outcome, log apt.Logger) {
	if n.publisher == nil {
		return
	}

	event := pkg.ReservationOutcomeEvent{
		EventType:     pkg.EventReservationCreated,
		OutcomeID:     outcome.ID.String(),
		SessionID:     outcome.SessionID,
		ReservationID: outcome.ReservationID,
		TableNumber:   outcome.TableNumber,
		Date:          outcome.Date,
		Time:          outcome.Time,
		PartySize:     outcome.PartySize,
		Detached:      outcome.Detached,
		OccurredAt:    outcome.CreatedAt,
	}
	if !outcome.Success {
		event.EventType = pkg.EventReservationFailed
		event.Error = outcome.Message
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("cannot marshal reservation outcome event", "error", err)
		return
	}
	if err := n.publisher.Publish(ctx, pkg.ReservationOutcomeTopic, payload); err != nil {
		log.Error("cannot publish reservation outcome event", "error", err)
	}
}
