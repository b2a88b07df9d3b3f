package session

// Profile is the user profile carried by an authenticated session.
// Role is optional: some account API deployments omit it.
type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
}

// Session is one execution context's view of the current authentication.
//
// Authenticated is true iff Token is non-empty and User is a profile with a
// non-empty Username. Use [Session.Normalize] after building a value by hand.
type Session struct {
	Authenticated bool
	Token         string
	User          *Profile
}

// Cleared returns the fully logged-out session.
func Cleared() Session {
	return Session{}
}

// FromRecord builds an authenticated session from a durable record.
func FromRecord(rec Record) Session {
	p := rec.Profile
	return Session{Token: rec.Token, User: &p}.Normalize()
}

// Normalize enforces the session invariant: any combination other than a
// token plus a usable profile collapses to the cleared state.
func (s Session) Normalize() Session {
	if s.Token == "" || s.User == nil || s.User.Username == "" {
		return Cleared()
	}
	p := *s.User
	return Session{Authenticated: true, Token: s.Token, User: &p}
}

// Clone returns a deep copy so callers cannot mutate shared profile state.
func (s Session) Clone() Session {
	if s.User == nil {
		return Session{Authenticated: s.Authenticated, Token: s.Token}
	}
	p := *s.User
	return Session{Authenticated: s.Authenticated, Token: s.Token, User: &p}
}

// Equal reports whether two sessions carry the same state.
func (s Session) Equal(o Session) bool {
	if s.Authenticated != o.Authenticated || s.Token != o.Token {
		return false
	}
	if s.User == nil || o.User == nil {
		return s.User == nil && o.User == nil
	}
	return *s.User == *o.User
}

// Record is the durable form of an authenticated session.
type Record struct {
	Token   string
	Profile Profile
}

// Valid reports whether the record can back an authenticated session.
func (r Record) Valid() bool {
	return r.Token != "" && r.Profile.Username != ""
}
