package frontdesk

import (
	"context"
	"encoding/json"
	"time"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/frontdesk/pkg/booking"
)

// AuditEntry represents a single audit log entry for a user action.
type AuditEntry struct {
	UserID    string          `json:"user_id"`
	Role      string          `json:"role"`
	Action    string          `json:"action"`
	Target    string          `json:"target"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
}

// AuditLogger records front desk actions that change reservations or sessions.
type AuditLogger struct {
	logger apt.Logger
}

func NewAuditLogger(logger apt.Logger) *AuditLogger {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &AuditLogger{logger: logger}
}

func (a *AuditLogger) Log(ctx context.Context, entry AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	a.logger.Info("audit",
		"user_id", entry.UserID,
		"role", entry.Role,
		"action", entry.Action,
		"target", entry.Target,
		"payload", string(entry.Payload),
		"success", entry.Success,
		"timestamp", entry.Timestamp.Format(time.RFC3339),
		"error", entry.Error,
	)
}

func (a *AuditLogger) LogSignIn(ctx context.Context, session *Session) {
	a.Log(ctx, AuditEntry{
		UserID:  session.UserID,
		Role:    session.Role,
		Action:  "signin",
		Target:  "auth",
		Success: true,
	})
}

func (a *AuditLogger) LogSignOut(ctx context.Context, session *Session) {
	a.Log(ctx, AuditEntry{
		UserID:  session.UserID,
		Role:    session.Role,
		Action:  "signout",
		Target:  "auth",
		Success: true,
	})
}

// LogSubmit records a reservation submit and its outcome.
func (a *AuditLogger) LogSubmit(ctx context.Context, session *Session, outcome *Outcome) {
	payload, _ := json.Marshal(map[string]interface{}{
		"table":      outcome.TableNumber,
		"date":       outcome.Date,
		"time":       outcome.Time,
		"party_size": outcome.PartySize,
		"detached":   outcome.Detached,
	})

	entry := AuditEntry{
		UserID:  session.UserID,
		Role:    session.Role,
		Action:  "submit-reservation",
		Target:  outcome.ReservationID,
		Payload: payload,
		Success: outcome.Success,
	}
	if !outcome.Success {
		entry.Error = outcome.Message
	}
	a.Log(ctx, entry)
}

func (a *AuditLogger) LogStatusChange(ctx context.Context, session *Session, reservationID, status string, err error) {
	payload, _ := json.Marshal(map[string]string{"status": status})

	entry := AuditEntry{
		UserID:  session.UserID,
		Role:    session.Role,
		Action:  "update-reservation-status",
		Target:  reservationID,
		Payload: payload,
		Success: err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	a.Log(ctx, entry)
}

func (a *AuditLogger) LogRegister(ctx context.Context, session *Session) {
	a.Log(ctx, AuditEntry{
		UserID:  session.UserID,
		Role:    session.Role,
		Action:  "register",
		Target:  "auth",
		Success: true,
	})
}

// LogTableChange records a floor plan change. Target is the table id, or the
// table number when the table is new.
func (a *AuditLogger) LogTableChange(ctx context.Context, session *Session, action, target string, in *booking.TableInput, err error) {
	entry := AuditEntry{
		UserID:  session.UserID,
		Role:    session.Role,
		Action:  action,
		Target:  target,
		Success: err == nil,
	}
	if in != nil {
		entry.Payload, _ = json.Marshal(in)
	}
	if err != nil {
		entry.Error = err.Error()
	}
	a.Log(ctx, entry)
}
