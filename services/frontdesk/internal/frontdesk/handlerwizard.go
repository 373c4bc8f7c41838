package frontdesk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/frontdesk/pkg/booking"
)

// DraftUpdateRequest carries draft fields by wire name. Values are strings so
// partySize arrives the way a form field would.
type DraftUpdateRequest map[string]string

type SelectTableRequest struct {
	TableID string `json:"tableId"`
}

type SubmitResponse struct {
	Reservation *booking.Reservation `json:"reservation"`
	Outcome     *Outcome             `json:"outcome"`
}

// OpenWizard starts a new booking for the session, pre-filled from its profile.
func (h *Handler) OpenWizard(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.OpenWizard")
	defer finish()

	log := h.log(r)
	session := sessionFromContext(r.Context())
	gw := h.gateway(session)

	var opts []booking.ResolverOption
	if h.demoTables {
		opts = append(opts, booking.WithFallbackTables(booking.DemoTables()))
	}
	// The wizard outlives this request, so it logs per session.
	wizardLog := h.logger.With("session_id", session.ID)
	resolver := booking.NewResolver(gw, wizardLog, opts...)
	if err := resolver.Warm(r.Context()); err != nil {
		if errors.Is(err, booking.ErrUnauthorized) {
			h.respondBookingError(w, log, err)
			return
		}
		log.Info("table list unavailable when opening wizard", "error", err)
	}

	wizard := booking.NewWizard(resolver, gw, wizardLog, h.clock)
	wizard.Prefill(session.Profile())
	h.wizards.Open(session.ID, wizard)
	if h.sessionEnded(w, log, session) {
		h.wizards.Discard(session.ID)
		return
	}

	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, wizard.Snapshot())
}

func (h *Handler) GetWizard(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetWizard")
	defer finish()

	entry, ok := h.currentWizard(w, r)
	if !ok {
		return
	}
	apt.RespondSuccess(w, entry.Wizard.Snapshot())
}

// DiscardWizard abandons the draft. A submit already in flight still
// completes and its outcome is delivered to the notifications inbox.
func (h *Handler) DiscardWizard(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DiscardWizard")
	defer finish()

	session := sessionFromContext(r.Context())
	h.wizards.Discard(session.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateDraft")
	defer finish()

	log := h.log(r)
	entry, ok := h.currentWizard(w, r)
	if !ok {
		return
	}

	var req DraftUpdateRequest
	if !h.decodeJSON(w, r, log, &req) {
		return
	}

	// Customer fields first so a query change resolves once with final values.
	for _, field := range draftFieldOrder {
		value, ok := req[field]
		if !ok {
			continue
		}
		if err := entry.Wizard.Update(r.Context(), field, value); err != nil {
			h.respondBookingError(w, log, err)
			return
		}
		delete(req, field)
	}
	for field := range req {
		h.respondBookingError(w, log, fmt.Errorf("%w: %s", booking.ErrUnknownField, field))
		return
	}
	if h.sessionEnded(w, log, sessionFromContext(r.Context())) {
		return
	}

	apt.RespondSuccess(w, entry.Wizard.Snapshot())
}

var draftFieldOrder = []string{
	"customerName",
	"customerEmail",
	"customerPhone",
	"specialRequests",
	"reservationDate",
	"reservationTime",
	"partySize",
}

func (h *Handler) NextStep(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.NextStep")
	defer finish()

	h.step(w, r, func(ctx context.Context, wz *booking.Wizard) error {
		return wz.Next(ctx)
	})
}

func (h *Handler) PreviousStep(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PreviousStep")
	defer finish()

	h.step(w, r, func(ctx context.Context, wz *booking.Wizard) error {
		return wz.Back(ctx)
	})
}

func (h *Handler) RefreshAvailability(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RefreshAvailability")
	defer finish()

	h.step(w, r, func(ctx context.Context, wz *booking.Wizard) error {
		_, err := wz.Refresh(ctx)
		if errors.Is(err, booking.ErrStaleResolution) {
			return nil
		}
		return err
	})
}

func (h *Handler) SelectTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SelectTable")
	defer finish()

	log := h.log(r)
	entry, ok := h.currentWizard(w, r)
	if !ok {
		return
	}

	var req SelectTableRequest
	if !h.decodeJSON(w, r, log, &req) {
		return
	}
	if err := entry.Wizard.SelectTable(req.TableID); err != nil {
		h.respondBookingError(w, log, err)
		return
	}
	apt.RespondSuccess(w, entry.Wizard.Snapshot())
}

// SubmitReservation creates the reservation. The backend call runs on a
// context detached from the request so that a client leaving mid-submit
// cannot turn a created reservation into an unknown one; the outcome always
// reaches the notifier.
func (h *Handler) SubmitReservation(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SubmitReservation")
	defer finish()

	log := h.log(r)
	session := sessionFromContext(r.Context())
	entry, ok := h.currentWizard(w, r)
	if !ok {
		return
	}

	draft := entry.Wizard.Draft()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.submitTimeout)
	defer cancel()

	res, err := entry.Wizard.Submit(ctx)
	if !reachedBackend(err) {
		h.respondBookingError(w, log, err)
		return
	}

	outcome := NewOutcome(session, draft, res, err)
	outcome.Detached = !h.wizards.Owns(session.ID, entry.ID)
	h.notifier.Notify(ctx, outcome)
	h.auditLogger.LogSubmit(ctx, session, outcome)

	if err != nil {
		h.respondBookingError(w, log, err)
		return
	}

	h.wizards.DiscardIf(session.ID, entry.ID)
	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, SubmitResponse{Reservation: res, Outcome: outcome})
}

// ListNotifications returns the session's recent submit outcomes.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListNotifications")
	defer finish()

	log := h.log(r)
	session := sessionFromContext(r.Context())

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			apt.RespondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	outcomes, err := h.notifier.Recent(r.Context(), session.ID, limit)
	if err != nil {
		log.Error("cannot list notifications", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve notifications")
		return
	}

	apt.RespondCollection(w, outcomes, "notification")
}

func (h *Handler) step(w http.ResponseWriter, r *http.Request, move func(context.Context, *booking.Wizard) error) {
	log := h.log(r)
	entry, ok := h.currentWizard(w, r)
	if !ok {
		return
	}
	if err := move(r.Context(), entry.Wizard); err != nil {
		h.respondBookingError(w, log, err)
		return
	}
	if h.sessionEnded(w, log, sessionFromContext(r.Context())) {
		return
	}
	apt.RespondSuccess(w, entry.Wizard.Snapshot())
}

// sessionEnded answers 401 when the backend rejected the session's token
// while the request ran. The session and its wizard are already gone.
func (h *Handler) sessionEnded(w http.ResponseWriter, log apt.Logger, session *Session) bool {
	if _, err := h.sessions.Get(session.ID); err == nil {
		return false
	}
	log.Info("session ended during request", "session_id", session.ID)
	h.respondBookingError(w, log, booking.ErrUnauthorized)
	return true
}

func (h *Handler) currentWizard(w http.ResponseWriter, r *http.Request) (*WizardEntry, bool) {
	session := sessionFromContext(r.Context())
	entry, ok := h.wizards.Get(session.ID)
	if !ok {
		apt.RespondError(w, http.StatusNotFound, "No booking in progress")
		return nil, false
	}
	return entry, true
}

// reachedBackend reports whether a submit error came from the create call
// rather than from local gating.
func reachedBackend(err error) bool {
	if err == nil {
		return true
	}
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		return false
	}
	return !errors.Is(err, booking.ErrWizardDone) &&
		!errors.Is(err, booking.ErrSubmitInProgress) &&
		!errors.Is(err, booking.ErrNotAtConfirmation)
}
