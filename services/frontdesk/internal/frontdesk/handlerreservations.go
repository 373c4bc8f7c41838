package frontdesk

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"

	"github.com/appetiteclub/frontdesk/pkg"
	"github.com/appetiteclub/frontdesk/pkg/booking"
	"github.com/appetiteclub/frontdesk/pkg/enums/reservationstatus"
)

type ReservationListResponse struct {
	Reservations []ReservationView `json:"reservations"`
	Stats        ReservationStats  `json:"stats"`
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
}

// ListReservations lists reservations filtered by date and status, with
// per-status counts.
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListReservations")
	defer finish()

	log := h.log(r)
	session := sessionFromContext(r.Context())

	filter := booking.ReservationFilter{
		Date:   strings.TrimSpace(r.URL.Query().Get("date")),
		Status: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))),
	}
	if filter.Date != "" {
		if _, err := time.Parse(booking.DateLayout, filter.Date); err != nil {
			apt.RespondError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
	}
	if filter.Status == "all" {
		filter.Status = ""
	}
	if filter.Status != "" && reservationstatus.ByName(filter.Status) == nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	reservations, err := h.gateway(session).FetchReservations(r.Context(), filter)
	if err != nil {
		h.respondBookingError(w, log, err)
		return
	}

	apt.RespondSuccess(w, ReservationListResponse{
		Reservations: NewReservationViews(reservations),
		Stats:        ComputeStats(reservations),
	})
}

// UpdateReservationStatus moves a reservation to a new status, including
// cancellation.
func (h *Handler) UpdateReservationStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateReservationStatus")
	defer finish()

	log := h.log(r)
	session := sessionFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		apt.RespondError(w, http.StatusBadRequest, "Missing id parameter")
		return
	}

	var req StatusUpdateRequest
	if !h.decodeJSON(w, r, log, &req) {
		return
	}
	status := reservationstatus.ByName(strings.ToLower(strings.TrimSpace(req.Status)))
	if status == nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	err := h.gateway(session).UpdateReservationStatus(r.Context(), id, status.Code())
	h.auditLogger.LogStatusChange(r.Context(), session, id, status.Code(), err)
	if err != nil {
		h.respondBookingError(w, log, err)
		return
	}

	h.publishStatusChanged(r.Context(), session, id, status.Code())
	log.Info("reservation status updated", "reservation_id", id, "status", status.Code())
	apt.RespondSuccess(w, map[string]string{"id": id, "status": status.Code(), "statusLabel": status.Label()})
}

// ListMyReservations lists the reservations booked under the session's email.
func (h *Handler) ListMyReservations(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListMyReservations")
	defer finish()

	log := h.log(r)
	session := sessionFromContext(r.Context())

	if strings.TrimSpace(session.Email) == "" {
		apt.RespondError(w, http.StatusBadRequest, "Your account has no email address")
		return
	}

	reservations, err := h.gateway(session).FetchUserReservations(r.Context(), session.Email)
	if err != nil {
		h.respondBookingError(w, log, err)
		return
	}

	apt.RespondSuccess(w, ReservationListResponse{
		Reservations: NewReservationViews(reservations),
		Stats:        ComputeStats(reservations),
	})
}

// ListTables returns the floor plan with display labels.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListTables")
	defer finish()

	log := h.log(r)
	session := sessionFromContext(r.Context())

	tables, err := h.gateway(session).FetchAllTables(r.Context())
	if err != nil {
		h.respondBookingError(w, log, err)
		return
	}

	apt.RespondCollection(w, NewTableViews(tables), "table")
}

func (h *Handler) publishStatusChanged(ctx context.Context, session *Session, id, status string) {
	if h.publisher == nil {
		return
	}

	event := pkg.ReservationStatusEvent{
		EventType:     pkg.EventReservationStatusChanged,
		ReservationID: id,
		Status:        status,
		ChangedBy:     session.UserID,
		OccurredAt:    time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("cannot marshal reservation status event", "error", err, "reservation_id", id)
		return
	}

	if err := h.publisher.Publish(ctx, pkg.ReservationStatusTopic, payload); err != nil {
		h.logger.Error("cannot publish reservation status event", "error", err, "reservation_id", id)
	}
}
