package frontdesk

import (
	"github.com/appetiteclub/frontdesk/pkg/booking"
	"github.com/appetiteclub/frontdesk/pkg/enums/reservationstatus"
)

// ReservationStats counts a reservation list by status.
type ReservationStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Seated    int `json:"seated"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

func ComputeStats(reservations []booking.Reservation) ReservationStats {
	s := ReservationStats{Total: len(reservations)}
	for _, r := range reservations {
		switch r.Status {
		case reservationstatus.Statuses.Pending.Code():
			s.Pending++
		case reservationstatus.Statuses.Confirmed.Code():
			s.Confirmed++
		case reservationstatus.Statuses.Seated.Code():
			s.Seated++
		case reservationstatus.Statuses.Completed.Code():
			s.Completed++
		case reservationstatus.Statuses.Cancelled.Code():
			s.Cancelled++
		}
	}
	return s
}
