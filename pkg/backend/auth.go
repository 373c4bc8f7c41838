package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/appetiteclub/frontdesk/pkg/booking"
	"github.com/appetiteclub/frontdesk/pkg/enums/role"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// Account is the signed-in user returned by the backend login.
type Account struct {
	ID        string
	Username  string
	Email     string
	Role      string
	Phone     string
	Token     string
	// ExpiresAt is the token's exp claim, zero when the token carries none.
	ExpiresAt time.Time
}

func (a Account) Profile() booking.Profile {
	return booking.Profile{Name: a.Username, Email: a.Email, Phone: a.Phone}
}

// The login and register answers are not wrapped in data: user fields sit
// next to success.
type loginResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Token    string `json:"token"`
	ID       string `json:"_id"`
	AltID    string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (*Account, error) {
	const op = "login"
	payload := map[string]string{"email": strings.TrimSpace(email), "password": password}

	resp, err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, payload)
	if err != nil {
		return nil, c.transportFailure(ctx, op, err)
	}
	if resp.status == http.StatusUnauthorized || resp.status == http.StatusBadRequest {
		return nil, ErrInvalidCredentials
	}
	if resp.status >= 300 {
		return nil, &booking.RequestFailure{Op: op, StatusCode: resp.status, Err: errors.New(messageOf(resp.body, http.StatusText(resp.status)))}
	}

	return decodeAccount(op, resp)
}

// Registration is a new customer account. The role is not chosen here:
// the front desk only signs up customers.
type Registration struct {
	Username string
	Email    string
	Password string
	Phone    string
}

// Register creates a customer account and signs it in.
func (c *Client) Register(ctx context.Context, reg Registration) (*Account, error) {
	const op = "register"
	payload := map[string]string{
		"username": strings.TrimSpace(reg.Username),
		"email":    strings.TrimSpace(reg.Email),
		"password": reg.Password,
		"role":     role.Roles.Customer.Code(),
	}
	if phone := strings.TrimSpace(reg.Phone); phone != "" {
		payload["phone"] = phone
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, payload)
	if err != nil {
		return nil, c.transportFailure(ctx, op, err)
	}
	switch {
	case resp.status == http.StatusBadRequest || resp.status == http.StatusConflict || resp.status == http.StatusUnprocessableEntity:
		return nil, &booking.ServerValidationError{Message: messageOf(resp.body, "Registration was rejected")}
	case resp.status >= 300:
		return nil, &booking.RequestFailure{Op: op, StatusCode: resp.status, Err: errors.New(messageOf(resp.body, http.StatusText(resp.status)))}
	}

	acc, err := decodeAccount(op, resp)
	if errors.Is(err, ErrInvalidCredentials) {
		return nil, &booking.ServerValidationError{Message: messageOf(resp.body, "Registration was rejected")}
	}
	return acc, err
}

func decodeAccount(op string, resp *response) (*Account, error) {
	var lr loginResponse
	if err := json.Unmarshal(resp.body, &lr); err != nil {
		return nil, &booking.RequestFailure{Op: op, StatusCode: resp.status, Err: err}
	}
	if !lr.Success || lr.Token == "" {
		return nil, ErrInvalidCredentials
	}

	return &Account{
		ID:        firstNonEmpty(lr.ID, lr.AltID),
		Username:  lr.Username,
		Email:     lr.Email,
		Role:      strings.ToLower(lr.Role),
		Phone:     lr.Phone,
		Token:     lr.Token,
		ExpiresAt: tokenExpiry(lr.Token),
	}, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend remains the only judge of the token.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, ok := claims["exp"].(float64)
	if !ok || exp <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(exp), 0)
}

// Ping checks that the backend answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/health", nil, nil)
	if err != nil {
		return c.transportFailure(ctx, "ping", err)
	}
	if resp.status >= 300 {
		return &booking.RequestFailure{Op: "ping", StatusCode: resp.status, Err: errors.New(http.StatusText(resp.status))}
	}
	return nil
}
