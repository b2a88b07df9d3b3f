package accountstub

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	minPasswordLength = 6
	maxBodyBytes      = 64 << 10
)

// Config controls a [Server].
type Config struct {
	// Secret signs issued tokens. Required.
	Secret []byte
	// TokenTTL is the lifetime of issued tokens. Zero selects one hour.
	TokenTTL time.Duration
	// MaxFailedLogins locks a username after that many consecutive failures.
	// Zero disables lockout.
	MaxFailedLogins int
	Logger          *slog.Logger
	Now             func() time.Time
}

// Mail is a message the server pretended to send.
type Mail struct {
	To      string
	Subject string
	Body    string
}

type user struct {
	ID           string
	Username     string
	Email        string
	Role         string
	PasswordHash string
	failures     int
}

// Server is an in-memory account API.
type Server struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	users   map[string]*user
	byEmail map[string]*user
	outbox  []Mail
}

// Claims are the JWT claims of issued tokens.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type fieldError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// NewServer creates an empty server.
func NewServer(cfg Config) (*Server, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("accountstub: secret required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	return &Server{
		cfg:     cfg,
		logger:  logger.With("component", "accountstub"),
		users:   make(map[string]*user),
		byEmail: make(map[string]*user),
	}, nil
}

// AddUser creates an account directly, bypassing registration checks other
// than uniqueness.
func (s *Server) AddUser(username, email, password, role string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if errs := s.conflictsLocked(username, email); len(errs) > 0 {
		return fmt.Errorf("accountstub: %s", errs[0].Description)
	}
	s.insertLocked(&user{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	})
	return nil
}

// Outbox returns a copy of every mail sent so far.
func (s *Server) Outbox() []Mail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Mail, len(s.outbox))
	copy(out, s.outbox)
	return out
}

// Handler routes the account endpoints under /api/account.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/account").Subrouter()
	api.HandleFunc("/login", s.login).Methods(http.MethodPost).Name("login")
	api.HandleFunc("/register", s.register).Methods(http.MethodPost).Name("register")
	api.HandleFunc("/forgot-username", s.forgotUsername).Methods(http.MethodPost).Name("forgot-username")
	api.HandleFunc("/forgot-password", s.forgotPassword).Methods(http.MethodPost).Name("forgot-password")
	return r
}

// ParseToken verifies a token issued by this server.
func (s *Server) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.cfg.Now))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Username and password are required."})
		return
	}

	s.mu.Lock()
	u := s.users[strings.ToLower(req.Username)]
	if u != nil && s.cfg.MaxFailedLogins > 0 && u.failures >= s.cfg.MaxFailedLogins {
		s.mu.Unlock()
		s.logger.Warn("login on locked account", "username", req.Username)
		writeJSON(w, http.StatusLocked, map[string]string{"message": "Account locked after too many failed attempts."})
		return
	}
	s.mu.Unlock()

	ok := false
	if u != nil {
		var err error
		ok, err = verifyPassword(req.Password, u.PasswordHash)
		if err != nil {
			s.logger.Error("stored password hash unreadable", "username", u.Username, "error", err)
		}
	}

	s.mu.Lock()
	if u != nil {
		if ok {
			u.failures = 0
		} else {
			u.failures++
		}
	}
	s.mu.Unlock()

	if !ok {
		s.logger.Info("login rejected", "username", req.Username)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid username or password."})
		return
	}

	token, err := s.issue(u)
	if err != nil {
		s.logger.Error("sign token failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.logger.Info("login accepted", "username", u.Username)
	resp := map[string]string{
		"userName": u.Username,
		"email":    u.Email,
		"jwtToken": token,
	}
	if u.Role != "" {
		resp["role"] = u.Role
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}

	var errs []fieldError
	if strings.TrimSpace(req.Username) == "" {
		errs = append(errs, fieldError{Code: "InvalidUserName", Description: "Username is required."})
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		errs = append(errs, fieldError{Code: "InvalidEmail", Description: fmt.Sprintf("Email '%s' is invalid.", req.Email)})
	}
	if len(req.Password) < minPasswordLength {
		errs = append(errs, fieldError{Code: "PasswordTooShort", Description: fmt.Sprintf("Passwords must be at least %d characters.", minPasswordLength)})
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	if errs := s.conflictsLocked(req.Username, req.Email); len(errs) > 0 {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	u := &user{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		Role:         "user",
		PasswordHash: hash,
	}
	s.insertLocked(u)
	s.outbox = append(s.outbox, Mail{
		To:      u.Email,
		Subject: "Confirm your email",
		Body:    "Welcome " + u.Username + ", please confirm your email address.",
	})
	s.mu.Unlock()

	s.logger.Info("account registered", "username", u.Username, "id", u.ID)
	writeJSON(w, http.StatusOK, map[string]string{
		"id":      u.ID,
		"message": "Registration successful. Please confirm your email.",
	})
}

func (s *Server) forgotUsername(w http.ResponseWriter, r *http.Request) {
	s.recovery(w, r, func(u *user) (Mail, string) {
		return Mail{To: u.Email, Subject: "Your username", Body: "Your username is " + u.Username + "."},
			"Your username has been sent to your email."
	})
}

func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	s.recovery(w, r, func(u *user) (Mail, string) {
		return Mail{To: u.Email, Subject: "Reset your password", Body: "Reset code: " + uuid.NewString()},
			"A password reset link has been sent to your email."
	})
}

func (s *Server) recovery(w http.ResponseWriter, r *http.Request, compose func(*user) (Mail, string)) {
	var req struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"description": "Email is required."})
		return
	}

	s.mu.Lock()
	u := s.byEmail[strings.ToLower(req.Email)]
	if u == nil {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No account is registered with that email."})
		return
	}
	m, msg := compose(u)
	s.outbox = append(s.outbox, m)
	s.mu.Unlock()

	s.logger.Info("recovery mail sent", "subject", m.Subject)
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) conflictsLocked(username, email string) []fieldError {
	var errs []fieldError
	if _, ok := s.users[strings.ToLower(username)]; ok {
		errs = append(errs, fieldError{Code: "DuplicateUserName", Description: fmt.Sprintf("Username '%s' is already taken.", username)})
	}
	if _, ok := s.byEmail[strings.ToLower(email)]; ok {
		errs = append(errs, fieldError{Code: "DuplicateEmail", Description: fmt.Sprintf("Email '%s' is already taken.", email)})
	}
	return errs
}

func (s *Server) insertLocked(u *user) {
	s.users[strings.ToLower(u.Username)] = u
	s.byEmail[strings.ToLower(u.Email)] = u
}

func (s *Server) issue(u *user) (string, error) {
	now := s.cfg.Now()
	claims := Claims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			Issuer:    "accountstub",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
}

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed request body."})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
