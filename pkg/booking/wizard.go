package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
)

var stepNames = map[int]string{
	StepCustomerInfo:   "customer-info",
	StepDateTime:       "date-time",
	StepTableSelection: "table-selection",
	StepConfirmation:   "confirmation",
}

func StepName(step int) string {
	return stepNames[step]
}

// Snapshot is a read-only view of a wizard.
type Snapshot struct {
	Step         int           `json:"step"`
	StepName     string        `json:"stepName"`
	Draft        Draft         `json:"draft"`
	Availability *Availability `json:"availability,omitempty"`
	Resolving    bool          `json:"resolving"`
	Submitting   bool          `json:"submitting"`
	Done         bool          `json:"done"`
	Reservation  *Reservation  `json:"reservation,omitempty"`
}

// Wizard drives one reservation through customer info, date and time, table
// selection and confirmation. It owns its draft exclusively.
//
// Availability resolutions run outside the lock and are numbered. Only the
// most recently started resolution may publish its result; older ones are
// cancelled and their answers dropped.
type Wizard struct {
	resolver *Resolver
	gateway  Gateway
	logger   apt.Logger

	mu            sync.Mutex
	step          int
	draft         *DraftState
	availability  *Availability
	generation    uint64
	cancelResolve context.CancelFunc
	submitting    bool
	done          bool
	result        *Reservation
}

func NewWizard(resolver *Resolver, gateway Gateway, logger apt.Logger, now func() time.Time) *Wizard {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Wizard{
		resolver: resolver,
		gateway:  gateway,
		logger:   logger,
		step:     StepCustomerInfo,
		draft:    NewDraftState(now),
	}
}

func (w *Wizard) Prefill(p Profile) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Prefill(p)
}

func (w *Wizard) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft.Draft()
}

// Availability returns the latest published resolution, if any.
func (w *Wizard) Availability() (Availability, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.availability == nil {
		return Availability{}, false
	}
	return *w.availability, true
}

func (w *Wizard) Done() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Snapshot{
		Step:        w.step,
		StepName:    StepName(w.step),
		Draft:       w.draft.Draft(),
		Resolving:   w.cancelResolve != nil,
		Submitting:  w.submitting,
		Done:        w.done,
		Reservation: w.result,
	}
	if w.availability != nil {
		a := *w.availability
		s.Availability = &a
	}
	return s
}

// Update sets a draft field. A change to date, time or party size drops the
// availability answered for the old values. From table selection or
// confirmation the wizard then resolves again for the new values, unless
// they no longer pass the date and time checks.
func (w *Wizard) Update(ctx context.Context, field, value string) error {
	w.mu.Lock()
	if w.done {
		w.mu.Unlock()
		return ErrWizardDone
	}
	before := w.draft.Query()
	if err := w.draft.Set(field, value); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.draft.Query() == before {
		w.mu.Unlock()
		return nil
	}

	w.availability = nil
	if w.step < StepTableSelection {
		w.mu.Unlock()
		return nil
	}
	// The confirmed table was picked for other values.
	w.step = StepTableSelection
	if err := w.draft.ValidateStep(StepDateTime); err != nil {
		w.abandonResolution()
		w.draft.ClearSelection()
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()

	return w.settle(w.resolve(ctx))
}

// Next validates the current step and advances. Entering table selection
// always resolves availability for the current draft.
func (w *Wizard) Next(ctx context.Context) error {
	w.mu.Lock()
	if w.done {
		w.mu.Unlock()
		return ErrWizardDone
	}
	if w.step == StepConfirmation {
		w.mu.Unlock()
		return ErrAtLastStep
	}
	if err := w.draft.ValidateStep(w.step); err != nil {
		w.mu.Unlock()
		return err
	}
	w.step++
	entering := w.step
	w.mu.Unlock()

	w.logger.Debug("Wizard advanced", "step", StepName(entering))
	if entering != StepTableSelection {
		return nil
	}
	return w.settle(w.resolve(ctx))
}

// Back moves one step back without validation. Returning to table selection
// from confirmation resolves availability again.
func (w *Wizard) Back(ctx context.Context) error {
	w.mu.Lock()
	if w.done {
		w.mu.Unlock()
		return ErrWizardDone
	}
	if w.step == StepCustomerInfo {
		w.mu.Unlock()
		return ErrAtFirstStep
	}
	w.step--
	entering := w.step
	if entering < StepTableSelection {
		w.abandonResolution()
	}
	w.mu.Unlock()

	if entering != StepTableSelection {
		return nil
	}
	return w.settle(w.resolve(ctx))
}

// Refresh re-runs availability while on the table selection step.
func (w *Wizard) Refresh(ctx context.Context) (Availability, error) {
	w.mu.Lock()
	if w.done {
		w.mu.Unlock()
		return Availability{}, ErrWizardDone
	}
	if w.step != StepTableSelection {
		w.mu.Unlock()
		return Availability{}, ErrNotSelectingTable
	}
	if err := w.draft.ValidateStep(StepDateTime); err != nil {
		w.mu.Unlock()
		return Availability{}, err
	}
	w.mu.Unlock()
	return w.resolve(ctx)
}

// SelectTable picks a table from the current availability.
func (w *Wizard) SelectTable(tableID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return ErrWizardDone
	}
	if w.step != StepTableSelection {
		return ErrNotSelectingTable
	}
	if w.availability == nil {
		return ErrUnknownTable
	}
	if w.availability.Query != w.draft.Query() {
		return ErrAvailabilityOutdated
	}
	table, ok := w.availability.Find(tableID)
	if !ok {
		return ErrUnknownTable
	}
	return w.draft.SelectTable(table)
}

// Submit creates the reservation. The gateway is called exactly once per
// call; there is no retry. A conflict sends the wizard back to table
// selection with fresh availability, any other failure leaves it on the
// confirmation step.
func (w *Wizard) Submit(ctx context.Context) (*Reservation, error) {
	w.mu.Lock()
	switch {
	case w.done:
		w.mu.Unlock()
		return nil, ErrWizardDone
	case w.submitting:
		w.mu.Unlock()
		return nil, ErrSubmitInProgress
	case w.step != StepConfirmation:
		w.mu.Unlock()
		return nil, ErrNotAtConfirmation
	}
	// The draft may have been edited since each step was left.
	for step := StepCustomerInfo; step < StepConfirmation; step++ {
		if err := w.draft.ValidateStep(step); err != nil {
			w.mu.Unlock()
			return nil, err
		}
	}
	req := NewReservationRequest(w.draft.Draft())
	w.submitting = true
	w.mu.Unlock()

	res, err := w.gateway.CreateReservation(ctx, req)

	w.mu.Lock()
	w.submitting = false
	if err == nil {
		w.done = true
		w.result = res
		w.abandonResolution()
		w.mu.Unlock()
		w.logger.Info("Reservation created", "id", res.ID, "table", res.TableNumber)
		return res, nil
	}

	if !IsConflict(err) {
		w.mu.Unlock()
		w.logger.Info("Reservation submit failed", "error", err)
		return nil, err
	}

	w.step = StepTableSelection
	w.draft.ClearSelection()
	w.availability = nil
	w.mu.Unlock()

	w.logger.Info("Table taken before submit, resolving again", "table", req.TableNumber)
	if _, rerr := w.resolve(ctx); rerr != nil && !errors.Is(rerr, ErrStaleResolution) {
		w.logger.Error("Cannot resolve availability after conflict", "error", rerr)
	}
	return nil, err
}

// Close cancels any in-flight resolution. An in-flight submit is not
// affected; its caller owns the outcome.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.abandonResolution()
}

func (w *Wizard) resolve(ctx context.Context) (Availability, error) {
	w.mu.Lock()
	w.abandonResolution()
	w.generation++
	gen := w.generation
	rctx, cancel := context.WithCancel(ctx)
	w.cancelResolve = cancel
	query := w.draft.Query()
	w.mu.Unlock()

	avail, err := w.resolver.Resolve(rctx, query)

	w.mu.Lock()
	defer w.mu.Unlock()
	cancel()

	current := gen == w.generation
	if current {
		w.cancelResolve = nil
	}
	if err != nil && (current || errors.Is(err, ErrUnauthorized)) {
		// A rejected token ends the session, which discards this wizard and
		// supersedes the resolution; the caller still has to hear about it.
		if current {
			w.availability = nil
			w.draft.ClearSelection()
		}
		return Availability{}, err
	}
	if !current {
		return Availability{}, ErrStaleResolution
	}

	w.availability = &avail
	w.reconcileSelection(avail)
	return avail, nil
}

// abandonResolution cancels the pending resolution and makes sure its
// answer is never published. Callers hold w.mu.
func (w *Wizard) abandonResolution() {
	if w.cancelResolve != nil {
		w.cancelResolve()
		w.cancelResolve = nil
	}
	w.generation++
}

// reconcileSelection keeps the selected table only if the new answer still
// offers it.
func (w *Wizard) reconcileSelection(avail Availability) {
	selected := w.draft.draft.SelectedTable
	if selected == nil {
		return
	}
	table, ok := avail.Find(selected.ID)
	if !ok {
		w.draft.ClearSelection()
		return
	}
	if err := w.draft.SelectTable(table); err != nil {
		w.draft.ClearSelection()
	}
}

// settle treats a superseded resolution as success for the transition that
// started it: a newer resolution owns the visible result.
func (w *Wizard) settle(_ Availability, err error) error {
	if errors.Is(err, ErrStaleResolution) {
		return nil
	}
	return err
}
