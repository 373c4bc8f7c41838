package frontdesk

import (
	"context"
	"sync"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/frontdesk/pkg/backend"
	"github.com/appetiteclub/frontdesk/pkg/booking"
)

// MockBackend is a mock implementation of Backend for testing
type MockBackend struct {
	FetchAllTablesFunc          func(ctx context.Context) ([]booking.Table, error)
	FetchReservationsFunc       func(ctx context.Context, filter booking.ReservationFilter) ([]booking.Reservation, error)
	FetchAvailableTablesFunc    func(ctx context.Context, query booking.Query) ([]booking.Table, error)
	CreateReservationFunc       func(ctx context.Context, req booking.ReservationRequest) (*booking.Reservation, error)
	UpdateReservationStatusFunc func(ctx context.Context, id, status string) error
	FetchUserReservationsFunc   func(ctx context.Context, email string) ([]booking.Reservation, error)
	CreateTableFunc             func(ctx context.Context, in booking.TableInput) (*booking.Table, error)
	UpdateTableFunc             func(ctx context.Context, id string, in booking.TableInput) (*booking.Table, error)
	DeleteTableFunc             func(ctx context.Context, id string) error
}

func (m *MockBackend) FetchAllTables(ctx context.Context) ([]booking.Table, error) {
	if m.FetchAllTablesFunc != nil {
		return m.FetchAllTablesFunc(ctx)
	}
	return testTables(), nil
}

func (m *MockBackend) FetchReservations(ctx context.Context, filter booking.ReservationFilter) ([]booking.Reservation, error) {
	if m.FetchReservationsFunc != nil {
		return m.FetchReservationsFunc(ctx, filter)
	}
	return nil, nil
}

func (m *MockBackend) FetchAvailableTables(ctx context.Context, query booking.Query) ([]booking.Table, error) {
	if m.FetchAvailableTablesFunc != nil {
		return m.FetchAvailableTablesFunc(ctx, query)
	}
	var out []booking.Table
	for _, t := range testTables() {
		if t.Fits(query.PartySize) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockBackend) CreateReservation(ctx context.Context, req booking.ReservationRequest) (*booking.Reservation, error) {
	if m.CreateReservationFunc != nil {
		return m.CreateReservationFunc(ctx, req)
	}
	return &booking.Reservation{ID: "res-1", TableNumber: req.TableNumber, Status: req.Status}, nil
}

func (m *MockBackend) UpdateReservationStatus(ctx context.Context, id, status string) error {
	if m.UpdateReservationStatusFunc != nil {
		return m.UpdateReservationStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *MockBackend) FetchUserReservations(ctx context.Context, email string) ([]booking.Reservation, error) {
	if m.FetchUserReservationsFunc != nil {
		return m.FetchUserReservationsFunc(ctx, email)
	}
	return nil, nil
}

func (m *MockBackend) CreateTable(ctx context.Context, in booking.TableInput) (*booking.Table, error) {
	if m.CreateTableFunc != nil {
		return m.CreateTableFunc(ctx, in)
	}
	return tableFromInput("t-new", in), nil
}

func (m *MockBackend) UpdateTable(ctx context.Context, id string, in booking.TableInput) (*booking.Table, error) {
	if m.UpdateTableFunc != nil {
		return m.UpdateTableFunc(ctx, id, in)
	}
	return tableFromInput(id, in), nil
}

func (m *MockBackend) DeleteTable(ctx context.Context, id string) error {
	if m.DeleteTableFunc != nil {
		return m.DeleteTableFunc(ctx, id)
	}
	return nil
}

func tableFromInput(id string, in booking.TableInput) *booking.Table {
	return &booking.Table{
		ID:          id,
		TableNumber: in.TableNumber,
		Capacity:    in.Capacity,
		Location:    in.Location,
		Status:      in.Status,
		Description: in.Description,
	}
}

// MockAuthenticator is a mock implementation of Authenticator for testing
type MockAuthenticator struct {
	LoginFunc    func(ctx context.Context, email, password string) (*backend.Account, error)
	RegisterFunc func(ctx context.Context, reg backend.Registration) (*backend.Account, error)
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string) (*backend.Account, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, backend.ErrInvalidCredentials
}

func (m *MockAuthenticator) Register(ctx context.Context, reg backend.Registration) (*backend.Account, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, reg)
	}
	return nil, &booking.ServerValidationError{Message: "Registration is closed"}
}

// MockPublisher is a mock implementation of events.Publisher for testing
type MockPublisher struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{published: make(map[string][][]byte)}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[topic] = append(m.published[topic], msg)
	return nil
}

func (m *MockPublisher) Messages(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.published[topic]...)
}

// MockLogger is a mock implementation of apt.Logger that records With calls
type MockLogger struct {
	mu   sync.Mutex
	with [][]any
}

func (m *MockLogger) Debug(v ...any)                 {}
func (m *MockLogger) Debugf(format string, a ...any) {}
func (m *MockLogger) Info(v ...any)                  {}
func (m *MockLogger) Infof(format string, a ...any)  {}
func (m *MockLogger) Error(v ...any)                 {}
func (m *MockLogger) Errorf(format string, a ...any) {}
func (m *MockLogger) SetLogLevel(level apt.LogLevel) {}

func (m *MockLogger) With(args ...any) apt.Logger {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.with = append(m.with, args)
	return m
}

func (m *MockLogger) WithCalls() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]any(nil), m.with...)
}

func testTables() []booking.Table {
	return []booking.Table{
		{ID: "t1", TableNumber: "T01", Capacity: 2, Location: "indoors", Status: "available"},
		{ID: "t2", TableNumber: "T02", Capacity: 4, Location: "indoors", Status: "available"},
		{ID: "t3", TableNumber: "T03", Capacity: 6, Location: "outdoors", Status: "available"},
	}
}
