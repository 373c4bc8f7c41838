package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/appetiteclub/apt"
)

// Tier names the strategy that produced an availability answer.
type Tier string

const (
	TierPrimary     Tier = "primary"
	TierSecondary   Tier = "secondary"
	TierTertiary    Tier = "tertiary"
	TierUnavailable Tier = "unavailable"
)

// Availability is the outcome of one resolution. Tables is never nil.
type Availability struct {
	Query   Query   `json:"query"`
	Tables  []Table `json:"tables"`
	Tier    Tier    `json:"tier"`
	Message string  `json:"message"`
}

// Degraded reports whether the answer came from a fallback tier.
func (a Availability) Degraded() bool {
	return a.Tier != TierPrimary
}

func (a Availability) Find(tableID string) (Table, bool) {
	for _, t := range a.Tables {
		if t.ID == tableID {
			return t, true
		}
	}
	return Table{}, false
}

type ResolverOption func(*Resolver)

// WithFallbackTables sets the tables the last tier falls back to when the
// backend table list was never available.
func WithFallbackTables(tables []Table) ResolverOption {
	return func(r *Resolver) {
		r.fallback = append([]Table(nil), tables...)
	}
}

// Resolver answers availability queries with a three-tier fallback:
// the backend availability endpoint, then local filtering of the table list
// against the day's reservations, then a capacity-only filter.
type Resolver struct {
	gateway  Gateway
	logger   apt.Logger
	fallback []Table

	mu     sync.RWMutex
	tables []Table
}

func NewResolver(gateway Gateway, logger apt.Logger, opts ...ResolverOption) *Resolver {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	r := &Resolver{
		gateway: gateway,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Warm loads the table list so the last tier has something to work with
// even when the secondary tier cannot reach the backend.
func (r *Resolver) Warm(ctx context.Context) error {
	tables, err := r.gateway.FetchAllTables(ctx)
	if err != nil {
		return fmt.Errorf("cannot warm table list: %w", err)
	}
	r.remember(tables)
	return nil
}

// Resolve degrades through the tiers on backend failures. It returns an
// error only when the context ends or the backend rejects the session token:
// neither is something a lower tier can answer.
func (r *Resolver) Resolve(ctx context.Context, q Query) (Availability, error) {
	log := r.logger.With("date", q.Date, "time", q.Time, "party_size", q.PartySize)

	tables, err := r.gateway.FetchAvailableTables(ctx, q)
	if err == nil {
		return r.answer(q, TierPrimary, tables), nil
	}
	if err := fatal(ctx, err); err != nil {
		return Availability{}, err
	}
	log.Info("availability endpoint failed, filtering locally", "error", err)

	all, tablesErr := r.gateway.FetchAllTables(ctx)
	if tablesErr == nil {
		r.remember(all)
		reservations, resErr := r.gateway.FetchReservations(ctx, ReservationFilter{Date: q.Date})
		if resErr == nil {
			return r.answer(q, TierSecondary, filterAvailable(all, reservations, q)), nil
		}
		err = resErr
	} else {
		err = tablesErr
	}
	if err := fatal(ctx, err); err != nil {
		return Availability{}, err
	}
	log.Info("local availability check failed, using capacity only", "error", err)

	known := r.knownTables()
	if len(known) == 0 {
		known = r.fallback
	}
	if len(known) == 0 {
		log.Error("no table list available")
		return r.answer(q, TierUnavailable, nil), nil
	}
	return r.answer(q, TierTertiary, filterCapacity(known, q.PartySize)), nil
}

// fatal returns the error that must stop the fallback, if any.
// A rejected token wins over the context: ending the session cancels it.
func fatal(ctx context.Context, err error) error {
	if errors.Is(err, ErrUnauthorized) {
		return err
	}
	return ctx.Err()
}

func (r *Resolver) answer(q Query, tier Tier, tables []Table) Availability {
	if tables == nil {
		tables = []Table{}
	}
	return Availability{
		Query:   q,
		Tables:  tables,
		Tier:    tier,
		Message: tierMessage(tier, len(tables)),
	}
}

func (r *Resolver) remember(tables []Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = append([]Table(nil), tables...)
}

func (r *Resolver) knownTables() []Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Table(nil), r.tables...)
}

// filterAvailable keeps tables that seat the party, are in service and are
// not held by a reservation at the queried time.
func filterAvailable(tables []Table, reservations []Reservation, q Query) []Table {
	booked := make(map[string]bool, len(reservations))
	for _, res := range reservations {
		if res.ReservationTime == q.Time && res.HoldsTable() {
			booked[res.TableNumber] = true
		}
	}

	out := make([]Table, 0, len(tables))
	for _, t := range tables {
		if t.Fits(q.PartySize) && t.Available() && !booked[t.TableNumber] {
			out = append(out, t)
		}
	}
	return out
}

func filterCapacity(tables []Table, partySize int) []Table {
	out := make([]Table, 0, len(tables))
	for _, t := range tables {
		if t.Fits(partySize) {
			out = append(out, t)
		}
	}
	return out
}

func tierMessage(tier Tier, count int) string {
	switch tier {
	case TierPrimary:
		if count == 0 {
			return "No tables available for the selected time. Please try another time, date, or party size."
		}
		return fmt.Sprintf("Found %d available tables", count)
	case TierSecondary:
		if count == 0 {
			return "No tables available. Try different time or party size."
		}
		return fmt.Sprintf("Found %d tables (fallback mode)", count)
	case TierTertiary:
		if count == 0 {
			return "No tables match your criteria. Please try again."
		}
		return "Showing all tables (availability check failed)"
	default:
		return "Availability is unavailable right now. Please try again."
	}
}
