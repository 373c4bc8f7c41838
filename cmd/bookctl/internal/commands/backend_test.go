package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeBackend serves the reservations REST API the commands talk to.
type fakeBackend struct {
	mu             sync.Mutex
	availableFails bool
	created        []map[string]any
	authHeaders    []string
}

func newFakeBackend(t *testing.T) (*fakeBackend, string) {
	t.Helper()
	fb := &fakeBackend{}
	srv := httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(srv.Close)
	return fb, srv.URL
}

func (fb *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.authHeaders = append(fb.authHeaders, r.Header.Get("Authorization"))

	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	tables := `[
		{"_id":"t1","tableNumber":"T01","capacity":2,"location":"indoors","status":"available"},
		{"_id":"t2","tableNumber":"T02","capacity":4,"location":"indoors","status":"available"},
		{"_id":"t3","tableNumber":"T03","capacity":6,"location":"outdoors","status":"available"}
	]`

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/login":
		if body["password"] != "secret" {
			respond(w, http.StatusUnauthorized, `{"success":false,"message":"Invalid credentials"}`)
			return
		}
		respond(w, http.StatusOK, `{"success":true,"token":"jwt-ada","_id":"u1","username":"ada","email":"ada@example.com","role":"Staff"}`)
	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/register":
		respond(w, http.StatusCreated, `{"success":true,"token":"jwt-grace","_id":"u2","username":"grace","email":"grace@example.com","role":"`+body["role"].(string)+`"}`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/tables":
		respond(w, http.StatusOK, `{"success":true,"data":`+tables+`}`)
	case r.Method == http.MethodPost && r.URL.Path == "/api/tables":
		respond(w, http.StatusCreated, `{"success":true,"data":{"_id":"t9","tableNumber":"`+body["tableNumber"].(string)+`","capacity":8,"location":"private","status":"available"}}`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/tables/available":
		if fb.availableFails {
			respond(w, http.StatusInternalServerError, `{"success":false,"message":"boom"}`)
			return
		}
		if r.URL.Query().Get("partySize") == "3" {
			respond(w, http.StatusOK, `{"success":true,"data":[
				{"_id":"t2","tableNumber":"T02","capacity":4,"location":"indoors","status":"available"},
				{"_id":"t3","tableNumber":"T03","capacity":6,"location":"outdoors","status":"available"}
			]}`)
			return
		}
		respond(w, http.StatusOK, `{"success":true,"data":`+tables+`}`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/reservations":
		respond(w, http.StatusOK, `{"success":true,"data":[
			{"_id":"r0","tableNumber":"T02","reservationDate":"`+r.URL.Query().Get("date")+`","reservationTime":"19:00","partySize":4,"status":"confirmed"}
		]}`)
	case r.Method == http.MethodPost && r.URL.Path == "/api/reservations":
		fb.created = append(fb.created, body)
		body["_id"] = "r-1"
		data, _ := json.Marshal(body)
		respond(w, http.StatusCreated, `{"success":true,"data":`+string(data)+`}`)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/reservations/user/"):
		respond(w, http.StatusOK, `{"success":true,"data":[
			{"_id":"r7","customerName":"Grace","customerEmail":"grace@example.com","tableNumber":"T01","reservationDate":"2024-06-01","reservationTime":"12:00","partySize":2,"status":"pending"}
		]}`)
	default:
		respond(w, http.StatusNotFound, `{"success":false,"message":"not found"}`)
	}
}

func (fb *fakeBackend) createdReservations() []map[string]any {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]map[string]any(nil), fb.created...)
}

func respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("FRONTDESK_TOKEN", "")
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func tomorrow() string {
	return time.Now().AddDate(0, 0, 1).Format("2006-01-02")
}

func TestLoginCmd(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantOut []string
		wantErr string
	}{
		{
			name:    "validCredentials",
			args:    []string{"--email", "ada@example.com", "--password", "secret"},
			wantOut: []string{"Signed in as ada (staff)", "export FRONTDESK_TOKEN=jwt-ada"},
		},
		{
			name:    "wrongPassword",
			args:    []string{"--email", "ada@example.com", "--password", "nope"},
			wantErr: "invalid email or password",
		},
		{
			name:    "missingPassword",
			args:    []string{"--email", "ada@example.com"},
			wantErr: "--email and --password are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, url := newFakeBackend(t)

			out, err := runCmd(t, append([]string{"login", "--backend-url", url}, tt.args...)...)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("login error = %v", err)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestRegisterCmd(t *testing.T) {
	_, url := newFakeBackend(t)

	out, err := runCmd(t, "register", "--backend-url", url, "--username", "grace", "--email", "grace@example.com", "--password", "secret1")
	if err != nil {
		t.Fatalf("register error = %v", err)
	}
	if !strings.Contains(out, "Registered grace (customer)") || !strings.Contains(out, "FRONTDESK_TOKEN=jwt-grace") {
		t.Errorf("output:\n%s", out)
	}

	if _, err := runCmd(t, "register", "--backend-url", url, "--username", "grace", "--email", "grace@example.com", "--password", "abc"); err == nil {
		t.Error("short password accepted")
	}
}

func TestAvailabilityCmd(t *testing.T) {
	tests := []struct {
		name           string
		availableFails bool
		wantOut        []string
		dontWant       []string
	}{
		{
			name:     "primary",
			wantOut:  []string{"(primary)", "T02", "T03"},
			dontWant: []string{"T01"},
		},
		{
			name:           "secondaryDropsHeldTable",
			availableFails: true,
			wantOut:        []string{"(secondary)", "T03"},
			dontWant:       []string{"T01", "T02"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, url := newFakeBackend(t)
			fb.availableFails = tt.availableFails

			out, err := runCmd(t, "availability", "--backend-url", url, "--date", tomorrow(), "--time", "19:00", "--party-size", "3")
			if err != nil {
				t.Fatalf("availability error = %v", err)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			for _, unwanted := range tt.dontWant {
				if strings.Contains(out, unwanted) {
					t.Errorf("output has %q:\n%s", unwanted, out)
				}
			}
		})
	}
}

func TestAvailabilityCmdRejectsOffSlot(t *testing.T) {
	_, url := newFakeBackend(t)

	if _, err := runCmd(t, "availability", "--backend-url", url, "--date", tomorrow(), "--time", "23:30"); err == nil {
		t.Fatal("off-slot time accepted")
	}
}

func TestBookCmd(t *testing.T) {
	fb, url := newFakeBackend(t)
	date := tomorrow()

	out, err := runCmd(t, "book", "--backend-url", url, "--token", "jwt-ada",
		"--name", "Ada Lovelace", "--email", "ada@example.com", "--phone", "5551234567",
		"--date", date, "--time", "19:00", "--party-size", "3", "--table", "T03")
	if err != nil {
		t.Fatalf("book error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Reservation r-1 created: table T03 on "+date+" at 19:00 for 3 (pending)") {
		t.Errorf("output:\n%s", out)
	}

	created := fb.createdReservations()
	if len(created) != 1 {
		t.Fatalf("created = %d reservations, want 1", len(created))
	}
	if created[0]["tableNumber"] != "T03" || created[0]["customerEmail"] != "ada@example.com" || created[0]["status"] != "pending" {
		t.Errorf("payload = %v", created[0])
	}
	for _, h := range fb.authHeaders {
		if h != "Bearer jwt-ada" {
			t.Errorf("Authorization = %q, want the --token value", h)
		}
	}
}

func TestBookCmdFailures(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missingToken",
			args:    []string{"--name", "Ada", "--email", "ada@example.com", "--phone", "5551234567"},
			wantErr: "--token is required",
		},
		{
			name:    "invalidEmail",
			args:    []string{"--token", "jwt", "--name", "Ada", "--email", "ada", "--phone", "5551234567"},
			wantErr: "Please enter a valid email address",
		},
		{
			name:    "tableTooSmall",
			args:    []string{"--token", "jwt", "--name", "Ada", "--email", "ada@example.com", "--phone", "5551234567", "--party-size", "3", "--table", "T01"},
			wantErr: "table T01 is not available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, url := newFakeBackend(t)

			args := append([]string{"book", "--backend-url", url, "--date", tomorrow(), "--time", "19:00"}, tt.args...)
			_, err := runCmd(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
			if n := len(fb.createdReservations()); n != 0 {
				t.Errorf("created = %d reservations, want 0", n)
			}
		})
	}
}

func TestTablesCreateCmd(t *testing.T) {
	_, url := newFakeBackend(t)

	out, err := runCmd(t, "tables", "create", "--backend-url", url, "--token", "jwt", "--number", "T09", "--capacity", "8", "--location", "Private")
	if err != nil {
		t.Fatalf("tables create error = %v", err)
	}
	if !strings.Contains(out, "Table T09 created with id t9") {
		t.Errorf("output:\n%s", out)
	}

	if _, err := runCmd(t, "tables", "create", "--backend-url", url, "--number", "T09", "--capacity", "0"); err == nil {
		t.Error("zero capacity accepted")
	}
}

func TestReservationsMineCmd(t *testing.T) {
	_, url := newFakeBackend(t)

	out, err := runCmd(t, "reservations", "mine", "--backend-url", url, "--email", "grace@example.com")
	if err != nil {
		t.Fatalf("reservations mine error = %v", err)
	}
	for _, want := range []string{"Total: 1", "Pending: 1", "r7"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
