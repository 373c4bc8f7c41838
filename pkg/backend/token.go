package backend

// TokenSource supplies the bearer token of the active session. Invalidate is
// called when the backend answers 401.
type TokenSource interface {
	Token() string
	Invalidate()
}

// StaticToken is a fixed token, as used by the command line client.
type StaticToken string

func (t StaticToken) Token() string {
	return string(t)
}

func (t StaticToken) Invalidate() {}
