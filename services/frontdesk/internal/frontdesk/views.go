package frontdesk

import (
	"strings"

	"github.com/appetiteclub/frontdesk/pkg/booking"
	"github.com/appetiteclub/frontdesk/pkg/enums/reservationstatus"
	"github.com/appetiteclub/frontdesk/pkg/enums/tablelocation"
	"github.com/appetiteclub/frontdesk/pkg/enums/tablestatus"
)

type TableView struct {
	booking.Table
	LocationLabel string `json:"locationLabel"`
	StatusLabel   string `json:"statusLabel"`
}

func NewTableView(t booking.Table) TableView {
	v := TableView{Table: t, LocationLabel: humanize(t.Location), StatusLabel: humanize(t.Status)}
	if loc := tablelocation.ByName(t.Location); loc != nil {
		v.LocationLabel = loc.Label()
	}
	if st := tablestatus.ByName(t.Status); st != nil {
		v.StatusLabel = st.Label()
	}
	return v
}

func NewTableViews(tables []booking.Table) []TableView {
	views := make([]TableView, 0, len(tables))
	for _, t := range tables {
		views = append(views, NewTableView(t))
	}
	return views
}

type ReservationView struct {
	booking.Reservation
	StatusLabel string `json:"statusLabel"`
	Final       bool   `json:"final"`
}

func NewReservationView(r booking.Reservation) ReservationView {
	v := ReservationView{Reservation: r, StatusLabel: humanize(r.Status)}
	if st := reservationstatus.ByName(r.Status); st != nil {
		v.StatusLabel = st.Label()
		v.Final = st.Final()
	}
	return v
}

func NewReservationViews(reservations []booking.Reservation) []ReservationView {
	views := make([]ReservationView, 0, len(reservations))
	for _, r := range reservations {
		views = append(views, NewReservationView(r))
	}
	return views
}

// humanize turns an unknown code like "no_show" into "No show".
func humanize(code string) string {
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", " "))
	if code == "" {
		return ""
	}
	return strings.ToUpper(code[:1]) + code[1:]
}
