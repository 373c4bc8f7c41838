package frontdesk

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"

	"github.com/appetiteclub/frontdesk/pkg/backend"
	"github.com/appetiteclub/frontdesk/pkg/booking"
	"github.com/appetiteclub/frontdesk/pkg/enums/role"
)

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Phone           string `json:"phone"`
}

const minPasswordLength = 6

// validate returns the message to show for the first problem found, or "".
func (req RegisterRequest) validate() string {
	if !apt.IsRequired(req.Username) || !apt.IsRequired(req.Email) || req.Password == "" {
		return "Username, email and password are required."
	}
	if !apt.IsEmail(strings.TrimSpace(req.Email)) {
		return "Please enter a valid email address."
	}
	if !apt.MinLength(req.Password, minPasswordLength) {
		return "Password must be at least 6 characters."
	}
	if req.Password != req.ConfirmPassword {
		return "Passwords do not match."
	}
	return ""
}

type ProfileResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

func profileResponse(s *Session) ProfileResponse {
	return ProfileResponse{
		UserID:   s.UserID,
		Username: s.Username,
		Email:    s.Email,
		Phone:    s.Phone,
		Role:     s.Role,
	}
}

// HandleSignIn authenticates against the backend and opens a session.
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.HandleSignIn")
	defer finish()

	log := h.log(r)

	if !h.signInLimits.Allow(r) {
		log.Info("sign in rate limited", "ip", clientIP(r))
		apt.RespondError(w, http.StatusTooManyRequests, "Too many sign in attempts. Please wait and try again.")
		return
	}

	var req SignInRequest
	if !h.decodeJSON(w, r, log, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		apt.RespondError(w, http.StatusBadRequest, "Email and password are required.")
		return
	}
	if h.auth == nil {
		log.Error("sign in attempted without an authenticator")
		apt.RespondError(w, http.StatusServiceUnavailable, "Authentication service unavailable. Please try again later.")
		return
	}

	account, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, backend.ErrInvalidCredentials) {
		log.Debug("authentication failed", "email", req.Email)
		apt.RespondError(w, http.StatusUnauthorized, "Invalid email or password. Please try again.")
		return
	}
	if err != nil {
		log.Error("authentication service failure", "error", err)
		apt.RespondError(w, http.StatusBadGateway, "Authentication service unavailable. Please try again later.")
		return
	}

	session, ok := h.openSession(w, log, account)
	if !ok {
		return
	}
	h.auditLogger.LogSignIn(r.Context(), session)
	apt.RespondSuccess(w, profileResponse(session))
}

// HandleRegister signs up a customer account and opens a session for it.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.HandleRegister")
	defer finish()

	log := h.log(r)

	if !h.signInLimits.Allow(r) {
		log.Info("registration rate limited", "ip", clientIP(r))
		apt.RespondError(w, http.StatusTooManyRequests, "Too many attempts. Please wait and try again.")
		return
	}

	var req RegisterRequest
	if !h.decodeJSON(w, r, log, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		apt.RespondError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	if h.auth == nil {
		log.Error("registration attempted without an authenticator")
		apt.RespondError(w, http.StatusServiceUnavailable, "Authentication service unavailable. Please try again later.")
		return
	}

	account, err := h.auth.Register(r.Context(), backend.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	var rejected *booking.ServerValidationError
	if errors.As(err, &rejected) {
		log.Debug("registration rejected", "email", req.Email, "reason", rejected.Message)
		apt.RespondError(w, http.StatusUnprocessableEntity, rejected.Message)
		return
	}
	if err != nil {
		log.Error("authentication service failure", "error", err)
		apt.RespondError(w, http.StatusBadGateway, "Authentication service unavailable. Please try again later.")
		return
	}

	session, ok := h.openSession(w, log, account)
	if !ok {
		return
	}
	h.auditLogger.LogRegister(r.Context(), session)
	apt.RespondSuccess(w, profileResponse(session))
}

// openSession stores a session for a signed-in account and sets its cookie.
// It answers the request itself when it fails.
func (h *Handler) openSession(w http.ResponseWriter, log apt.Logger, account *backend.Account) (*Session, bool) {
	now := time.Now()
	expiresAt := now.Add(h.sessions.TTL())
	// A session never outlives the backend token it carries.
	if !account.ExpiresAt.IsZero() && account.ExpiresAt.Before(expiresAt) {
		expiresAt = account.ExpiresAt
	}
	if !expiresAt.After(now) {
		log.Info("backend issued an expired token", "user_id", account.ID)
		apt.RespondError(w, http.StatusBadGateway, "Authentication service unavailable. Please try again later.")
		return nil, false
	}

	session := &Session{
		ID:        uuid.New().String(),
		UserID:    account.ID,
		Username:  account.Username,
		Email:     account.Email,
		Phone:     account.Phone,
		Role:      role.Normalize(account.Role),
		Token:     account.Token,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := h.sessions.Save(session); err != nil {
		log.Error("failed to save session", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Session error. Please try again.")
		return nil, false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(expiresAt.Sub(now).Seconds()),
	})
	return session, true
}

// HandleSignOut ends the session and discards its open wizard.
func (h *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.HandleSignOut")
	defer finish()

	cookie, err := r.Cookie(h.sessionName)
	if err == nil && cookie.Value != "" {
		if session, err := h.sessions.Get(cookie.Value); err == nil {
			h.auditLogger.LogSignOut(r.Context(), session)
		}
		h.sessions.Delete(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	w.WriteHeader(http.StatusNoContent)
}

// SessionMiddleware validates the session cookie for protected routes.
func (h *Handler) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(h.sessionName)
		if err != nil {
			apt.RespondError(w, http.StatusUnauthorized, "Please sign in")
			return
		}

		session, err := h.sessions.Get(cookie.Value)
		if err != nil {
			apt.RespondError(w, http.StatusUnauthorized, "Please sign in")
			return
		}

		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
	})
}

// RequireRole rejects sessions that carry none of the given roles.
func (h *Handler) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sessionFromContext(r.Context())
			if session == nil {
				apt.RespondError(w, http.StatusUnauthorized, "Please sign in")
				return
			}
			if !session.HasRole(roles...) {
				h.log(r).Debug("role not allowed", "role", session.Role, "path", r.URL.Path)
				apt.RespondError(w, http.StatusForbidden, "You do not have access to this page")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
