package booking

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

func newTestWizard(gw *MockGateway) *Wizard {
	w := NewWizard(NewResolver(gw, nil), gw, nil, fixedClock("2024-06-01"))
	w.Prefill(Profile{Name: "Ada Lovelace", Email: "a@b.com", Phone: "0123456789"})
	return w
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func primaryGateway() *MockGateway {
	gw := NewMockGateway()
	gw.FetchAvailableTablesFunc = func(ctx context.Context, q Query) ([]Table, error) {
		return filterCapacity(sampleTables(), q.PartySize), nil
	}
	return gw
}

// wizardAtConfirmation walks a wizard to the confirmation step with T02 selected.
func wizardAtConfirmation(t *testing.T, gw *MockGateway) *Wizard {
	t.Helper()
	ctx := context.Background()
	w := newTestWizard(gw)
	if err := w.Update(ctx, "partySize", "4"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := w.Next(ctx); err != nil {
			t.Fatalf("Next() error = %v", err)
		}
	}
	if err := w.SelectTable("t2"); err != nil {
		t.Fatalf("SelectTable() error = %v", err)
	}
	if err := w.Next(ctx); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if w.Step() != StepConfirmation {
		t.Fatalf("Step() = %d, want %d", w.Step(), StepConfirmation)
	}
	return w
}

func TestWizardEnteringTableSelectionResolves(t *testing.T) {
	gw := primaryGateway()
	w := newTestWizard(gw)
	ctx := context.Background()

	if _, ok := w.Availability(); ok {
		t.Fatal("availability present before table selection")
	}
	must(t, w.Next(ctx))
	must(t, w.Next(ctx))

	avail, ok := w.Availability()
	if !ok {
		t.Fatal("no availability after entering table selection")
	}
	if avail.Tier != TierPrimary {
		t.Errorf("Tier = %s, want %s", avail.Tier, TierPrimary)
	}
	if got := gw.Calls("FetchAvailableTables"); got != 1 {
		t.Errorf("FetchAvailableTables called %d times, want 1", got)
	}
}

func TestWizardNextWithoutTable(t *testing.T) {
	w := newTestWizard(primaryGateway())
	ctx := context.Background()
	must(t, w.Next(ctx))
	must(t, w.Next(ctx))

	err := w.Next(ctx)
	assertReason(t, err, ReasonNoTableSelected)
	if w.Step() != StepTableSelection {
		t.Errorf("Step() = %d, want %d", w.Step(), StepTableSelection)
	}
}

func TestWizardNextValidationStays(t *testing.T) {
	w := newTestWizard(primaryGateway())
	ctx := context.Background()
	must(t, w.Update(ctx, "customerEmail", "not-an-email"))

	assertReason(t, w.Next(ctx), ReasonInvalidEmail)
	if w.Step() != StepCustomerInfo {
		t.Errorf("Step() = %d, want %d", w.Step(), StepCustomerInfo)
	}
}

func TestWizardBackAtFirstStep(t *testing.T) {
	w := newTestWizard(primaryGateway())
	if err := w.Back(context.Background()); !errors.Is(err, ErrAtFirstStep) {
		t.Errorf("Back() error = %v, want ErrAtFirstStep", err)
	}
}

func TestWizardBackNextIdempotent(t *testing.T) {
	gw := primaryGateway()
	w := newTestWizard(gw)
	ctx := context.Background()
	must(t, w.Update(ctx, "partySize", "4"))
	must(t, w.Next(ctx))
	must(t, w.Next(ctx))
	first, _ := w.Availability()

	if err := w.Back(ctx); err != nil {
		t.Fatalf("Back() error = %v", err)
	}
	if err := w.Next(ctx); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	second, _ := w.Availability()

	if w.Step() != StepTableSelection {
		t.Errorf("Step() = %d, want %d", w.Step(), StepTableSelection)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("availability changed: %+v vs %+v", first, second)
	}
	if got := gw.Calls("FetchAvailableTables"); got != 2 {
		t.Errorf("FetchAvailableTables called %d times, want 2", got)
	}
}

func TestWizardRequeryOnChangeAfterBack(t *testing.T) {
	var queries []Query
	gw := NewMockGateway()
	gw.FetchAvailableTablesFunc = func(ctx context.Context, q Query) ([]Table, error) {
		queries = append(queries, q)
		return filterCapacity(sampleTables(), q.PartySize), nil
	}
	w := newTestWizard(gw)
	ctx := context.Background()
	must(t, w.Next(ctx))
	must(t, w.Next(ctx))
	must(t, w.Back(ctx))
	must(t, w.Update(ctx, "reservationTime", "20:00"))
	must(t, w.Update(ctx, "partySize", "5"))
	must(t, w.Next(ctx))

	if len(queries) != 2 {
		t.Fatalf("resolutions = %d, want 2", len(queries))
	}
	want := Query{Date: "2024-06-01", Time: "20:00", PartySize: 5}
	if queries[1] != want {
		t.Errorf("second query = %+v, want %+v", queries[1], want)
	}
	avail, _ := w.Availability()
	if ids := tableIDs(avail.Tables); !reflect.DeepEqual(ids, []string{"t3"}) {
		t.Errorf("tables = %v, want [t3]", ids)
	}
}

func TestWizardSelectTable(t *testing.T) {
	w := newTestWizard(primaryGateway())
	ctx := context.Background()

	if err := w.SelectTable("t2"); !errors.Is(err, ErrNotSelectingTable) {
		t.Errorf("SelectTable() before step 2 error = %v, want ErrNotSelectingTable", err)
	}
	must(t, w.Update(ctx, "partySize", "4"))
	must(t, w.Next(ctx))
	must(t, w.Next(ctx))

	if err := w.SelectTable("t1"); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("SelectTable(t1) error = %v, want ErrUnknownTable", err)
	}
	if err := w.SelectTable("t3"); err != nil {
		t.Fatalf("SelectTable(t3) error = %v", err)
	}
	if got := w.Draft().SelectedTable; got == nil || got.TableNumber != "T03" {
		t.Errorf("SelectedTable = %+v, want T03", got)
	}
}

func TestWizardSubmit(t *testing.T) {
	gw := primaryGateway()
	var sent []ReservationRequest
	gw.CreateReservationFunc = func(ctx context.Context, req ReservationRequest) (*Reservation, error) {
		sent = append(sent, req)
		return &Reservation{ID: "res-42", TableNumber: req.TableNumber, Status: "pending"}, nil
	}
	w := wizardAtConfirmation(t, gw)

	res, err := w.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.ID != "res-42" {
		t.Errorf("reservation ID = %q, want res-42", res.ID)
	}
	if len(sent) != 1 {
		t.Fatalf("CreateReservation called %d times, want 1", len(sent))
	}
	want := ReservationRequest{
		CustomerName:    "Ada Lovelace",
		CustomerEmail:   "a@b.com",
		CustomerPhone:   "0123456789",
		TableNumber:     "T02",
		ReservationDate: "2024-06-01",
		ReservationTime: DefaultTime,
		PartySize:       4,
		Status:          "pending",
	}
	if sent[0] != want {
		t.Errorf("payload = %+v, want %+v", sent[0], want)
	}
	if !w.Done() {
		t.Error("wizard not done after successful submit")
	}
	if _, err := w.Submit(context.Background()); !errors.Is(err, ErrWizardDone) {
		t.Errorf("second Submit() error = %v, want ErrWizardDone", err)
	}
	if len(sent) != 1 {
		t.Errorf("CreateReservation called %d times after done, want 1", len(sent))
	}
}

func TestWizardSubmitOnlyAtConfirmation(t *testing.T) {
	gw := primaryGateway()
	w := newTestWizard(gw)
	if _, err := w.Submit(context.Background()); !errors.Is(err, ErrNotAtConfirmation) {
		t.Errorf("Submit() error = %v, want ErrNotAtConfirmation", err)
	}
	if gw.Calls("CreateReservation") != 0 {
		t.Error("CreateReservation called outside confirmation")
	}
}

func TestWizardSubmitFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantStep int
		wantKept bool
	}{
		{
			name:     "serverValidation",
			err:      &ServerValidationError{Message: "customerPhone is required"},
			wantStep: StepConfirmation,
			wantKept: true,
		},
		{
			name:     "requestFailure",
			err:      &RequestFailure{Op: "create reservation", StatusCode: 503, Err: errBackendDown},
			wantStep: StepConfirmation,
			wantKept: true,
		},
		{
			name:     "conflict",
			err:      &ConflictError{Message: "table T02 already booked"},
			wantStep: StepTableSelection,
			wantKept: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := primaryGateway()
			gw.CreateReservationFunc = func(ctx context.Context, req ReservationRequest) (*Reservation, error) {
				return nil, tt.err
			}
			w := wizardAtConfirmation(t, gw)
			resolutions := gw.Calls("FetchAvailableTables")

			_, err := w.Submit(context.Background())
			if !errors.Is(err, tt.err) {
				t.Errorf("Submit() error = %v, want %v", err, tt.err)
			}
			if w.Step() != tt.wantStep {
				t.Errorf("Step() = %d, want %d", w.Step(), tt.wantStep)
			}
			if kept := w.Draft().SelectedTable != nil; kept != tt.wantKept {
				t.Errorf("selection kept = %v, want %v", kept, tt.wantKept)
			}
			if w.Done() {
				t.Error("wizard done after failed submit")
			}
			if gw.Calls("CreateReservation") != 1 {
				t.Errorf("CreateReservation called %d times, want 1", gw.Calls("CreateReservation"))
			}

			reResolved := gw.Calls("FetchAvailableTables") > resolutions
			if reResolved != (tt.wantStep == StepTableSelection) {
				t.Errorf("re-resolved = %v after %s", reResolved, tt.name)
			}
		})
	}
}

func TestWizardQueryChangeAtConfirmation(t *testing.T) {
	gw := primaryGateway()
	w := wizardAtConfirmation(t, gw)
	resolutions := gw.Calls("FetchAvailableTables")

	must(t, w.Update(context.Background(), "partySize", "5"))

	if w.Step() != StepTableSelection {
		t.Errorf("Step() = %d, want %d", w.Step(), StepTableSelection)
	}
	if w.Draft().SelectedTable != nil {
		t.Error("table for four kept for a party of five")
	}
	if gw.Calls("FetchAvailableTables") != resolutions+1 {
		t.Error("availability not resolved for the new party size")
	}
	avail, _ := w.Availability()
	if avail.Query.PartySize != 5 {
		t.Errorf("availability party size = %d, want 5", avail.Query.PartySize)
	}
	if _, err := w.Submit(context.Background()); !errors.Is(err, ErrNotAtConfirmation) {
		t.Errorf("Submit() error = %v, want ErrNotAtConfirmation", err)
	}
	if gw.Calls("CreateReservation") != 0 {
		t.Error("CreateReservation called without a confirmed table")
	}
}

func TestWizardSubmitAfterLosingSelection(t *testing.T) {
	gw := primaryGateway()
	w := wizardAtConfirmation(t, gw)
	w.mu.Lock()
	w.draft.ClearSelection()
	w.mu.Unlock()

	_, err := w.Submit(context.Background())
	assertReason(t, err, ReasonNoTableSelected)
	if gw.Calls("CreateReservation") != 0 {
		t.Error("CreateReservation called without a table")
	}
}

func TestWizardSubmitRevalidatesDraft(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
		want  Reason
	}{
		{name: "invalidEmail", field: "customerEmail", value: "not-an-email", want: ReasonInvalidEmail},
		{name: "shortPhone", field: "customerPhone", value: "12345", want: ReasonInvalidPhone},
		{name: "missingName", field: "customerName", value: " ", want: ReasonMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := primaryGateway()
			w := wizardAtConfirmation(t, gw)
			must(t, w.Update(context.Background(), tt.field, tt.value))

			_, err := w.Submit(context.Background())
			assertReason(t, err, tt.want)
			if gw.Calls("CreateReservation") != 0 {
				t.Error("CreateReservation called with an invalid draft")
			}
			if w.Step() != StepConfirmation {
				t.Errorf("Step() = %d, want %d", w.Step(), StepConfirmation)
			}
		})
	}
}

func TestWizardInvalidQueryOnTableSelection(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
		want  Reason
	}{
		{name: "pastDate", field: "reservationDate", value: "2000-01-01", want: ReasonPastDate},
		{name: "emptyParty", field: "partySize", value: "0", want: ReasonInvalidPartySize},
		{name: "largeParty", field: "partySize", value: "11", want: ReasonInvalidPartySize},
		{name: "offSlot", field: "reservationTime", value: "23:30", want: ReasonInvalidSlot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := primaryGateway()
			w := wizardAtConfirmation(t, gw)
			must(t, w.Back(context.Background()))
			resolutions := gw.Calls("FetchAvailableTables")

			assertReason(t, w.Update(context.Background(), tt.field, tt.value), tt.want)

			if gw.Calls("FetchAvailableTables") != resolutions {
				t.Error("availability resolved for an invalid query")
			}
			if _, ok := w.Availability(); ok {
				t.Error("availability for the previous query still published")
			}
			if err := w.SelectTable("t3"); !errors.Is(err, ErrUnknownTable) {
				t.Errorf("SelectTable() error = %v, want ErrUnknownTable", err)
			}
			assertReason(t, w.Next(context.Background()), ReasonNoTableSelected)
			if _, err := w.Submit(context.Background()); err == nil {
				t.Error("Submit() succeeded with an invalid draft")
			}
			if gw.Calls("CreateReservation") != 0 {
				t.Error("CreateReservation called with an invalid draft")
			}
		})
	}
}

func TestWizardFailedResolutionDropsAvailability(t *testing.T) {
	gw := NewMockGateway()
	gw.FetchAvailableTablesFunc = func(ctx context.Context, q Query) ([]Table, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return filterCapacity(sampleTables(), q.PartySize), nil
	}
	w := newTestWizard(gw)
	ctx := context.Background()
	must(t, w.Next(ctx))
	must(t, w.Next(ctx))
	must(t, w.Back(ctx))
	must(t, w.Update(ctx, "reservationTime", "20:00"))

	if _, ok := w.Availability(); ok {
		t.Error("availability for 18:00 kept after moving to 20:00")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := w.Next(cancelled); !errors.Is(err, context.Canceled) {
		t.Fatalf("Next() error = %v, want context.Canceled", err)
	}
	if w.Step() != StepTableSelection {
		t.Fatalf("Step() = %d, want %d", w.Step(), StepTableSelection)
	}
	if _, ok := w.Availability(); ok {
		t.Error("availability published by a failed resolution")
	}
	if err := w.SelectTable("t1"); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("SelectTable() error = %v, want ErrUnknownTable", err)
	}

	if _, err := w.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if err := w.SelectTable("t1"); err != nil {
		t.Errorf("SelectTable() after refresh error = %v", err)
	}
}

func TestWizardSelectTableRejectsOutdatedAvailability(t *testing.T) {
	w := newTestWizard(primaryGateway())
	ctx := context.Background()
	must(t, w.Next(ctx))
	must(t, w.Next(ctx))

	w.mu.Lock()
	w.draft.draft.ReservationTime = "21:00"
	w.mu.Unlock()

	if err := w.SelectTable("t1"); !errors.Is(err, ErrAvailabilityOutdated) {
		t.Errorf("SelectTable() error = %v, want ErrAvailabilityOutdated", err)
	}
}

func TestWizardRejectedTokenSurfaces(t *testing.T) {
	var w *Wizard
	gw := NewMockGateway()
	gw.FetchAvailableTablesFunc = func(ctx context.Context, q Query) ([]Table, error) {
		// The session ends with the token and takes its wizard along.
		w.Close()
		return nil, &RequestFailure{Op: "fetch available tables", StatusCode: 401, Err: ErrUnauthorized}
	}
	w = newTestWizard(gw)
	ctx := context.Background()
	must(t, w.Next(ctx))

	if err := w.Next(ctx); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Next() error = %v, want ErrUnauthorized", err)
	}
	if gw.Calls("FetchAllTables") != 0 {
		t.Error("rejected token degraded to the secondary tier")
	}
}

func TestWizardLastRequestWins(t *testing.T) {
	releaseA := make(chan struct{})
	startedA := make(chan struct{})

	gw := NewMockGateway()
	gw.FetchAvailableTablesFunc = func(ctx context.Context, q Query) ([]Table, error) {
		if q.Time == "19:00" {
			close(startedA)
			<-releaseA
			// A slow response that ignores cancellation.
			return []Table{sampleTables()[0]}, nil
		}
		return []Table{sampleTables()[2]}, nil
	}

	w := newTestWizard(gw)
	ctx := context.Background()
	must(t, w.Update(ctx, "reservationTime", "20:00"))
	must(t, w.Next(ctx))
	must(t, w.Next(ctx))

	var wg sync.WaitGroup
	var errA error
	wg.Add(1)
	go func() {
		defer wg.Done()
		errA = w.Update(ctx, "reservationTime", "19:00")
	}()
	<-startedA

	if err := w.Update(ctx, "reservationTime", "21:00"); err != nil {
		t.Fatalf("Update(B) error = %v", err)
	}
	close(releaseA)
	wg.Wait()

	if errA != nil {
		t.Errorf("superseded update error = %v, want nil", errA)
	}
	avail, _ := w.Availability()
	if avail.Query.Time != "21:00" {
		t.Errorf("published query time = %s, want 21:00", avail.Query.Time)
	}
	if ids := tableIDs(avail.Tables); !reflect.DeepEqual(ids, []string{"t3"}) {
		t.Errorf("tables = %v, want [t3]", ids)
	}
}

func TestWizardRefreshSupersedesPending(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var mu sync.Mutex
	calls := 0

	gw := NewMockGateway()
	gw.FetchAvailableTablesFunc = func(ctx context.Context, q Query) ([]Table, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 2 {
			started <- struct{}{}
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return sampleTables(), nil
	}

	w := newTestWizard(gw)
	ctx := context.Background()
	must(t, w.Next(ctx))
	must(t, w.Next(ctx))

	done := make(chan error, 1)
	go func() {
		_, err := w.Refresh(ctx)
		done <- err
	}()
	<-started

	if _, err := w.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrStaleResolution) {
			t.Errorf("superseded Refresh() error = %v, want ErrStaleResolution", err)
		}
	case <-time.After(time.Second):
		t.Fatal("superseded resolution was not cancelled")
	}
	close(release)
}

func TestWizardRefreshOutsideTableSelection(t *testing.T) {
	w := newTestWizard(primaryGateway())
	if _, err := w.Refresh(context.Background()); !errors.Is(err, ErrNotSelectingTable) {
		t.Errorf("Refresh() error = %v, want ErrNotSelectingTable", err)
	}
}

func TestWizardSnapshot(t *testing.T) {
	w := wizardAtConfirmation(t, primaryGateway())
	s := w.Snapshot()

	if s.StepName != "confirmation" {
		t.Errorf("StepName = %q, want confirmation", s.StepName)
	}
	if s.Availability == nil || s.Availability.Tier != TierPrimary {
		t.Errorf("Availability = %+v, want primary", s.Availability)
	}
	if s.Draft.SelectedTable == nil || s.Draft.SelectedTable.ID != "t2" {
		t.Errorf("SelectedTable = %+v, want t2", s.Draft.SelectedTable)
	}
	if s.Resolving || s.Submitting || s.Done {
		t.Errorf("unexpected flags: %+v", s)
	}
}
