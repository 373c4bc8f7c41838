package booking

import (
	"strings"

	"github.com/appetiteclub/frontdesk/pkg/enums/reservationstatus"
	"github.com/appetiteclub/frontdesk/pkg/enums/tablestatus"
)

// Table is the client-side copy of a backend table.
type Table struct {
	ID          string `json:"id"`
	TableNumber string `json:"tableNumber"`
	Capacity    int    `json:"capacity"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

// Fits reports whether the table can seat the given party.
func (t Table) Fits(partySize int) bool {
	return t.Capacity >= partySize
}

func (t Table) Available() bool {
	return strings.EqualFold(t.Status, tablestatus.Statuses.Available.Code())
}

type Reservation struct {
	ID              string `json:"id"`
	CustomerName    string `json:"customerName"`
	CustomerEmail   string `json:"customerEmail"`
	CustomerPhone   string `json:"customerPhone"`
	TableNumber     string `json:"tableNumber"`
	ReservationDate string `json:"reservationDate"`
	ReservationTime string `json:"reservationTime"`
	PartySize       int    `json:"partySize"`
	SpecialRequests string `json:"specialRequests,omitempty"`
	Status          string `json:"status"`
}

// HoldsTable reports whether the reservation still blocks its table.
func (r Reservation) HoldsTable() bool {
	status := reservationstatus.ByName(strings.ToLower(r.Status))
	if status == nil {
		return true
	}
	return !status.Final()
}

// ReservationRequest is the create payload sent to the backend.
type ReservationRequest struct {
	CustomerName    string `json:"customerName"`
	CustomerEmail   string `json:"customerEmail"`
	CustomerPhone   string `json:"customerPhone"`
	TableNumber     string `json:"tableNumber"`
	ReservationDate string `json:"reservationDate"`
	ReservationTime string `json:"reservationTime"`
	PartySize       int    `json:"partySize"`
	SpecialRequests string `json:"specialRequests"`
	Status          string `json:"status"`
}

// NewReservationRequest builds the create payload for a finalized draft.
func NewReservationRequest(d Draft) ReservationRequest {
	req := ReservationRequest{
		CustomerName:    strings.TrimSpace(d.CustomerName),
		CustomerEmail:   strings.TrimSpace(d.CustomerEmail),
		CustomerPhone:   strings.TrimSpace(d.CustomerPhone),
		ReservationDate: d.ReservationDate,
		ReservationTime: d.ReservationTime,
		PartySize:       d.PartySize,
		SpecialRequests: d.SpecialRequests,
		Status:          reservationstatus.Statuses.Pending.Code(),
	}
	if d.SelectedTable != nil {
		req.TableNumber = d.SelectedTable.TableNumber
	}
	return req
}

// Query is the input of an availability resolution.
type Query struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	PartySize int    `json:"partySize"`
}

// ReservationFilter narrows a reservations listing. Empty fields are not sent.
type ReservationFilter struct {
	Date   string
	Status string
}

// Profile holds the contact details of the signed-in user used to pre-fill a draft.
type Profile struct {
	Name  string
	Email string
	Phone string
}
