package booking

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errBackendDown = errors.New("backend down")

// MockGateway is a mock implementation of Gateway for testing
type MockGateway struct {
	mu    sync.Mutex
	calls map[string]int

	FetchAllTablesFunc       func(ctx context.Context) ([]Table, error)
	FetchReservationsFunc    func(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	FetchAvailableTablesFunc func(ctx context.Context, query Query) ([]Table, error)
	CreateReservationFunc    func(ctx context.Context, req ReservationRequest) (*Reservation, error)
}

func NewMockGateway() *MockGateway {
	return &MockGateway{calls: make(map[string]int)}
}

func (m *MockGateway) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
}

func (m *MockGateway) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MockGateway) FetchAllTables(ctx context.Context) ([]Table, error) {
	m.record("FetchAllTables")
	if m.FetchAllTablesFunc != nil {
		return m.FetchAllTablesFunc(ctx)
	}
	return nil, nil
}

func (m *MockGateway) FetchReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error) {
	m.record("FetchReservations")
	if m.FetchReservationsFunc != nil {
		return m.FetchReservationsFunc(ctx, filter)
	}
	return nil, nil
}

func (m *MockGateway) FetchAvailableTables(ctx context.Context, query Query) ([]Table, error) {
	m.record("FetchAvailableTables")
	if m.FetchAvailableTablesFunc != nil {
		return m.FetchAvailableTablesFunc(ctx, query)
	}
	return nil, nil
}

func (m *MockGateway) CreateReservation(ctx context.Context, req ReservationRequest) (*Reservation, error) {
	m.record("CreateReservation")
	if m.CreateReservationFunc != nil {
		return m.CreateReservationFunc(ctx, req)
	}
	return &Reservation{ID: "res-1", TableNumber: req.TableNumber, Status: req.Status}, nil
}

func fixedClock(date string) func() time.Time {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		panic(err)
	}
	t = t.Add(12 * time.Hour)
	return func() time.Time { return t }
}

func tableIDs(tables []Table) []string {
	ids := make([]string, 0, len(tables))
	for _, t := range tables {
		ids = append(ids, t.ID)
	}
	return ids
}

func sampleTables() []Table {
	return []Table{
		{ID: "t1", TableNumber: "T01", Capacity: 2, Location: "indoors", Status: "available"},
		{ID: "t2", TableNumber: "T02", Capacity: 4, Location: "indoors", Status: "available"},
		{ID: "t3", TableNumber: "T03", Capacity: 6, Location: "outdoors", Status: "available"},
	}
}
