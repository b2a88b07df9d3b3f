package account

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// PathLogin is the login endpoint.
	PathLogin = "/api/account/login"
	// PathRegister is the registration endpoint.
	PathRegister = "/api/account/register"
	// PathForgotUsername is the username reminder endpoint.
	PathForgotUsername = "/api/account/forgot-username"
	// PathForgotPassword is the password reset request endpoint.
	PathForgotPassword = "/api/account/forgot-password"
)

const (
	// FallbackLogin is reported when a login failure carries no usable message.
	FallbackLogin = "login failed"
	// FallbackRegister is reported when a registration failure carries no usable message.
	FallbackRegister = "registration failed"
	// FallbackRecovery is reported when a recovery request failure carries no usable message.
	FallbackRecovery = "failed to send the email reminder"
)

const maxResponseBytes = 1 << 20

// Config configures a [Client].
type Config struct {
	BaseURL string
	// Timeout bounds each request when positive. Zero leaves cancellation to
	// the caller's context.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the account API.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// LoginRequest is the login body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the login success payload. Role may be empty.
type LoginResponse struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
	JWTToken string `json:"jwtToken"`
}

// RegisterRequest is the registration body.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// MessageResponse is the recovery success payload.
type MessageResponse struct {
	Message string `json:"message"`
}

type emailRequest struct {
	Email string `json:"email"`
}

// NewClient validates cfg and returns a client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("account api base url required")
	}
	if cfg.Timeout < 0 {
		return nil, errors.New("account api timeout must be >= 0")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: base, timeout: cfg.Timeout, http: hc}, nil
}

// Login exchanges credentials for a token and profile.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, InvalidRequest("username and password are required")
	}
	var out LoginResponse
	if _, _, err := c.post(ctx, PathLogin, req, &out, FallbackLogin); err != nil {
		return nil, err
	}
	if out.JWTToken == "" || out.UserName == "" {
		return nil, malformedResponse(FallbackLogin, nil)
	}
	return &out, nil
}

// Register creates an account. The success payload is returned when it is
// valid JSON and is nil otherwise.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (json.RawMessage, error) {
	if req.Email == "" || req.Username == "" || req.Password == "" {
		return nil, InvalidRequest("email, username and password are required")
	}
	_, data, err := c.post(ctx, PathRegister, req, nil, FallbackRegister)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || !json.Valid(data) {
		return nil, nil
	}
	return json.RawMessage(data), nil
}

// ForgotUsername asks the API to email a username reminder.
func (c *Client) ForgotUsername(ctx context.Context, email string) (*MessageResponse, error) {
	return c.recovery(ctx, PathForgotUsername, email)
}

// ForgotPassword asks the API to email a password reset link.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	return c.recovery(ctx, PathForgotPassword, email)
}

func (c *Client) recovery(ctx context.Context, path, email string) (*MessageResponse, error) {
	if strings.TrimSpace(email) == "" {
		return nil, InvalidRequest("email is required")
	}
	var out MessageResponse
	if _, _, err := c.post(ctx, path, emailRequest{Email: email}, &out, FallbackRecovery); err != nil {
		return nil, err
	}
	return &out, nil
}

// post sends body and decodes a 2xx response into out when out is non-nil.
// The raw response body is returned alongside.
func (c *Client) post(ctx context.Context, path string, body, out any, fallback string) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &Error{
			StatusCode: http.StatusInternalServerError,
			Message:    fallback,
			Err:        fmt.Errorf("%w: %v", ErrTransport, err),
		}
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		status := resp.StatusCode
		if ok {
			status = http.StatusBadGateway
		}
		return resp.StatusCode, nil, &Error{
			StatusCode: status,
			Message:    fallback,
			Err:        fmt.Errorf("%w: %v", ErrTransport, err),
		}
	}

	if !ok {
		return resp.StatusCode, data, NormalizeError(resp.StatusCode, data, fallback)
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, data, malformedResponse(fallback, err)
		}
	}
	return resp.StatusCode, data, nil
}
