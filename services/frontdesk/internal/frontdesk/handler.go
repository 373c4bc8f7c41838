package frontdesk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"

	"github.com/appetiteclub/frontdesk/pkg/backend"
	"github.com/appetiteclub/frontdesk/pkg/booking"
	"github.com/appetiteclub/frontdesk/pkg/enums/role"
)

const MaxBodyBytes = 1 << 20

const (
	defaultSessionName   = "frontdesk_session"
	defaultSessionTTL    = 8 * time.Hour
	defaultSubmitTimeout = 30 * time.Second
	defaultSignInEvery   = 6 * time.Second
	defaultSignInBurst   = 5
)

// Backend is what the front desk needs from the reservations backend on
// behalf of one session.
type Backend interface {
	booking.Gateway
	UpdateReservationStatus(ctx context.Context, id, status string) error
	FetchUserReservations(ctx context.Context, email string) ([]booking.Reservation, error)
	CreateTable(ctx context.Context, in booking.TableInput) (*booking.Table, error)
	UpdateTable(ctx context.Context, id string, in booking.TableInput) (*booking.Table, error)
	DeleteTable(ctx context.Context, id string) error
}

type Authenticator interface {
	Login(ctx context.Context, email, password string) (*backend.Account, error)
	Register(ctx context.Context, reg backend.Registration) (*backend.Account, error)
}

// BackendFactory binds the backend to a session's token.
type BackendFactory func(tokens backend.TokenSource) Backend

type HandlerDeps struct {
	Sessions   *SessionStore
	Auth       Authenticator
	BackendFor BackendFactory
	Outcomes   OutcomeStore
	Publisher  events.Publisher
	// Clock is used for draft defaults and date validation.
	Clock func() time.Time
}

type Handler struct {
	sessions      *SessionStore
	wizards       *WizardRegistry
	auth          Authenticator
	backendFor    BackendFactory
	notifier      *Notifier
	publisher     events.Publisher
	auditLogger   *AuditLogger
	signInLimits  *signInLimiter
	clock         func() time.Time
	sessionName   string
	submitTimeout time.Duration
	demoTables    bool
	logger        apt.Logger
	config        *apt.Config
	tlm           *telemetry.HTTP
}

func NewHandler(deps HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if config == nil {
		config = apt.NewConfig()
	}

	sessions := deps.Sessions
	if sessions == nil {
		ttl, err := time.ParseDuration(config.GetStringOrDef("auth.session.ttl", defaultSessionTTL.String()))
		if err != nil || ttl <= 0 {
			ttl = defaultSessionTTL
		}
		sessions = NewSessionStore(ttl)
	}

	submitTimeout, err := time.ParseDuration(config.GetStringOrDef("booking.submit_timeout", defaultSubmitTimeout.String()))
	if err != nil || submitTimeout <= 0 {
		submitTimeout = defaultSubmitTimeout
	}

	signInEvery, err := time.ParseDuration(config.GetStringOrDef("auth.signin.interval", defaultSignInEvery.String()))
	if err != nil || signInEvery <= 0 {
		signInEvery = defaultSignInEvery
	}
	signInBurst, err := strconv.Atoi(config.GetStringOrDef("auth.signin.burst", strconv.Itoa(defaultSignInBurst)))
	if err != nil || signInBurst <= 0 {
		signInBurst = defaultSignInBurst
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	h := &Handler{
		sessions:      sessions,
		wizards:       NewWizardRegistry(),
		auth:          deps.Auth,
		backendFor:    deps.BackendFor,
		notifier:      NewNotifier(deps.Outcomes, deps.Publisher, logger),
		publisher:     deps.Publisher,
		auditLogger:   NewAuditLogger(logger),
		signInLimits:  newSignInLimiter(signInEvery, signInBurst),
		clock:         clock,
		sessionName:   config.GetStringOrDef("auth.session.name", defaultSessionName),
		submitTimeout: submitTimeout,
		demoTables:    config.GetStringOrDef("booking.demo_tables", "false") == "true",
		logger:        logger,
		config:        config,
		tlm:           telemetry.NewHTTP(),
	}

	// A session that ends takes its draft with it.
	sessions.OnDelete(h.wizards.Discard)

	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/signin", h.HandleSignIn)
	r.Post("/register", h.HandleRegister)
	r.Post("/signout", h.HandleSignOut)

	r.Group(func(r chi.Router) {
		r.Use(h.SessionMiddleware)

		r.Route("/booking/wizard", func(r chi.Router) {
			r.Post("/", h.OpenWizard)
			r.Get("/", h.GetWizard)
			r.Delete("/", h.DiscardWizard)
			r.Patch("/draft", h.UpdateDraft)
			r.Post("/next", h.NextStep)
			r.Post("/back", h.PreviousStep)
			r.Post("/refresh", h.RefreshAvailability)
			r.Post("/table", h.SelectTable)
			r.Post("/submit", h.SubmitReservation)
		})

		r.Get("/notifications", h.ListNotifications)
		r.Get("/tables", h.ListTables)
		r.Get("/reservations/mine", h.ListMyReservations)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireRole(role.Roles.Admin.Code(), role.Roles.Staff.Code()))
			r.Get("/reservations", h.ListReservations)
			r.Post("/reservations/{id}/status", h.UpdateReservationStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequireRole(role.Roles.Admin.Code()))
			r.Post("/tables", h.CreateTable)
			r.Put("/tables/{id}", h.UpdateTable)
			r.Delete("/tables/{id}", h.DeleteTable)
		})
	})
}

// Stop releases background resources held by the handler.
func (h *Handler) Stop(ctx context.Context) error {
	return h.sessions.Stop(ctx)
}

func (h *Handler) gateway(session *Session) Backend {
	return h.backendFor(h.sessions.TokenSource(session.ID))
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, log apt.Logger, out interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("error reading request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Could not read request body")
		return false
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		apt.RespondError(w, http.StatusBadRequest, "Request body is empty")
		return false
	}

	if err := json.Unmarshal(body, out); err != nil {
		log.Debug("error decoding JSON", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}

	return true
}

// respondBookingError maps the booking error taxonomy to HTTP responses.
func (h *Handler) respondBookingError(w http.ResponseWriter, log apt.Logger, err error) {
	var verr *booking.ValidationError
	var conflict *booking.ConflictError
	var rejected *booking.ServerValidationError

	switch {
	case errors.As(err, &verr):
		apt.RespondError(w, http.StatusUnprocessableEntity, verr.Message)
	case errors.Is(err, booking.ErrInvalidTable):
		apt.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &conflict):
		apt.RespondError(w, http.StatusConflict, "That table was just booked. Please choose another table.")
	case errors.As(err, &rejected):
		apt.RespondError(w, http.StatusUnprocessableEntity, rejected.Message)
	case errors.Is(err, booking.ErrUnauthorized):
		apt.RespondError(w, http.StatusUnauthorized, "Your session expired. Please sign in again.")
	case errors.Is(err, booking.ErrUnknownField), errors.Is(err, booking.ErrUnknownTable):
		apt.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrAtFirstStep),
		errors.Is(err, booking.ErrAtLastStep),
		errors.Is(err, booking.ErrNotAtConfirmation),
		errors.Is(err, booking.ErrNotSelectingTable),
		errors.Is(err, booking.ErrAvailabilityOutdated),
		errors.Is(err, booking.ErrSubmitInProgress),
		errors.Is(err, booking.ErrWizardDone):
		apt.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		apt.RespondError(w, http.StatusGatewayTimeout, "The reservations service did not answer in time")
	case errors.Is(err, context.Canceled):
		apt.RespondError(w, http.StatusServiceUnavailable, "Request cancelled")
	case booking.IsRequestFailure(err):
		log.Error("reservations backend failure", "error", err)
		apt.RespondError(w, http.StatusBadGateway, "The reservations service is unavailable. Please try again.")
	default:
		// Draft setters report malformed input as plain errors.
		log.Debug("booking request rejected", "error", err)
		apt.RespondError(w, http.StatusBadRequest, err.Error())
	}
}
