package backend

import (
	"fmt"
	"strings"

	"github.com/appetiteclub/frontdesk/pkg/booking"
)

// The backend is a document store: records carry "_id", some proxies rename
// it to "id". Both are accepted.

type tableRecord struct {
	ID          string `json:"id"`
	MongoID     string `json:"_id"`
	TableNumber string `json:"tableNumber"`
	Capacity    int    `json:"capacity"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

func (r tableRecord) toTable() (booking.Table, error) {
	id := firstNonEmpty(r.ID, r.MongoID)
	if strings.TrimSpace(r.TableNumber) == "" {
		return booking.Table{}, fmt.Errorf("table %q has no table number", id)
	}
	if r.Capacity <= 0 {
		return booking.Table{}, fmt.Errorf("table %s has invalid capacity %d", r.TableNumber, r.Capacity)
	}
	if id == "" {
		id = r.TableNumber
	}
	return booking.Table{
		ID:          id,
		TableNumber: r.TableNumber,
		Capacity:    r.Capacity,
		Location:    strings.ToLower(r.Location),
		Status:      strings.ToLower(r.Status),
		Description: r.Description,
	}, nil
}

func toTables(records []tableRecord) ([]booking.Table, error) {
	tables := make([]booking.Table, 0, len(records))
	for _, rec := range records {
		t, err := rec.toTable()
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

type reservationRecord struct {
	ID              string `json:"id"`
	MongoID         string `json:"_id"`
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

func (r reservationRecord) toReservation() (booking.Reservation, error) {
	id := firstNonEmpty(r.ID, r.MongoID)
	if id == "" {
		return booking.Reservation{}, fmt.Errorf("reservation for table %q has no id", r.TableNumber)
	}
	return booking.Reservation{
		ID:              id,
		CustomerName:    r.CustomerName,
		CustomerEmail:   r.CustomerEmail,
		CustomerPhone:   r.CustomerPhone,
		TableNumber:     r.TableNumber,
		ReservationDate: normalizeDate(r.ReservationDate),
		ReservationTime: r.ReservationTime,
		PartySize:       r.PartySize,
		SpecialRequests: r.SpecialRequests,
		Status:          strings.ToLower(r.Status),
	}, nil
}

func toReservations(records []reservationRecord) ([]booking.Reservation, error) {
	out := make([]booking.Reservation, 0, len(records))
	for _, rec := range records {
		r, err := rec.toReservation()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// normalizeDate trims a full timestamp ("2024-06-01T00:00:00.000Z") to its date.
func normalizeDate(s string) string {
	if len(s) > len(booking.DateLayout) && s[len(booking.DateLayout)] == 'T' {
		return s[:len(booking.DateLayout)]
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
