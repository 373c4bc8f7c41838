package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/appetiteclub/frontdesk/pkg/booking"
	"github.com/appetiteclub/frontdesk/pkg/enums/reservationstatus"
)

func (c *Client) FetchReservations(ctx context.Context, filter booking.ReservationFilter) ([]booking.Reservation, error) {
	const op = "fetch reservations"
	query := url.Values{}
	if filter.Date != "" {
		query.Set("date", filter.Date)
	}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}

	var records []reservationRecord
	if err := c.read(ctx, op, "/api/reservations", query, &records); err != nil {
		return nil, err
	}
	reservations, err := toReservations(records)
	if err != nil {
		return nil, &booking.RequestFailure{Op: op, StatusCode: http.StatusOK, Err: err}
	}
	return reservations, nil
}

// FetchUserReservations lists the reservations booked under an email address.
func (c *Client) FetchUserReservations(ctx context.Context, email string) ([]booking.Reservation, error) {
	const op = "fetch user reservations"
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, &booking.ServerValidationError{Message: "Email is required"}
	}

	var records []reservationRecord
	if err := c.read(ctx, op, "/api/reservations/user/"+url.PathEscape(email), nil, &records); err != nil {
		return nil, err
	}
	reservations, err := toReservations(records)
	if err != nil {
		return nil, &booking.RequestFailure{Op: op, StatusCode: http.StatusOK, Err: err}
	}
	return reservations, nil
}

// CreateReservation posts a new reservation. The status is always sent as
// pending regardless of the request.
func (c *Client) CreateReservation(ctx context.Context, req booking.ReservationRequest) (*booking.Reservation, error) {
	req.Status = reservationstatus.Statuses.Pending.Code()

	var record reservationRecord
	if err := c.write(ctx, "create reservation", http.MethodPost, "/api/reservations", req, &record); err != nil {
		return nil, err
	}
	res, err := record.toReservation()
	if err != nil {
		return nil, &booking.ServerValidationError{Message: "Unexpected response from the reservations service"}
	}
	return &res, nil
}

// UpdateReservationStatus moves a reservation to another status.
func (c *Client) UpdateReservationStatus(ctx context.Context, id, status string) error {
	status = strings.ToLower(strings.TrimSpace(status))
	if reservationstatus.ByName(status) == nil {
		return &booking.ServerValidationError{Message: fmt.Sprintf("Unknown reservation status %q", status)}
	}
	if strings.TrimSpace(id) == "" {
		return &booking.ServerValidationError{Message: "Reservation id is required"}
	}

	path := "/api/reservations/" + url.PathEscape(id) + "/status"
	payload := map[string]string{"status": status}
	return c.write(ctx, "update reservation status", http.MethodPut, path, payload, nil)
}
