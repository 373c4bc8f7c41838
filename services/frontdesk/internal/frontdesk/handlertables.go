package frontdesk

import (
	"net/http"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"

	"github.com/appetiteclub/frontdesk/pkg/booking"
)

// CreateTable adds a table to the floor plan.
func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateTable")
	defer finish()

	log := h.log(r)
	session := sessionFromContext(r.Context())

	in, ok := h.decodeTableInput(w, r, log)
	if !ok {
		return
	}

	table, err := h.gateway(session).CreateTable(r.Context(), in)
	h.auditLogger.LogTableChange(r.Context(), session, "create-table", in.TableNumber, &in, err)
	if err != nil {
		h.respondBookingError(w, log, err)
		return
	}

	log.Info("table created", "table_id", table.ID, "table_number", table.TableNumber)
	apt.Respond(w, http.StatusCreated, NewTableView(*table), nil)
}

// UpdateTable replaces the editable fields of a table.
func (h *Handler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateTable")
	defer finish()

	log := h.log(r)
	session := sessionFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		apt.RespondError(w, http.StatusBadRequest, "Missing id parameter")
		return
	}

	in, ok := h.decodeTableInput(w, r, log)
	if !ok {
		return
	}

	table, err := h.gateway(session).UpdateTable(r.Context(), id, in)
	h.auditLogger.LogTableChange(r.Context(), session, "update-table", id, &in, err)
	if err != nil {
		h.respondBookingError(w, log, err)
		return
	}

	log.Info("table updated", "table_id", id)
	apt.RespondSuccess(w, NewTableView(*table))
}

func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeleteTable")
	defer finish()

	log := h.log(r)
	session := sessionFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		apt.RespondError(w, http.StatusBadRequest, "Missing id parameter")
		return
	}

	err := h.gateway(session).DeleteTable(r.Context(), id)
	h.auditLogger.LogTableChange(r.Context(), session, "delete-table", id, nil, err)
	if err != nil {
		h.respondBookingError(w, log, err)
		return
	}

	log.Info("table deleted", "table_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeTableInput(w http.ResponseWriter, r *http.Request, log apt.Logger) (booking.TableInput, bool) {
	var in booking.TableInput
	if !h.decodeJSON(w, r, log, &in) {
		return in, false
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		h.respondBookingError(w, log, err)
		return in, false
	}
	return in, true
}
