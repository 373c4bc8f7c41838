package booking

import "context"

// Gateway is the boundary over the remote reservations backend. Every call is
// a single request/response; retries belong to the transport, not here.
type Gateway interface {
	FetchAllTables(ctx context.Context) ([]Table, error)
	FetchReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	FetchAvailableTables(ctx context.Context, query Query) ([]Table, error)
	// CreateReservation fails with *ServerValidationError when the backend
	// rejects the payload and with *ConflictError when the table was taken.
	CreateReservation(ctx context.Context, req ReservationRequest) (*Reservation, error)
}
