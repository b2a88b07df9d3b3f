package goAuthSync

import (
	"context"
	"encoding/json"
	"io"

	"github.com/MrEthical07/goAuthSync/account"
	internalevents "github.com/MrEthical07/goAuthSync/internal/events"
	"github.com/MrEthical07/goAuthSync/session"
)

// AccountAPI is the remote account service. [account.Client] implements it
// over HTTP.
//
// Implementations return *account.Error for rejections so that callers can
// read the status code and message.
type AccountAPI interface {
	Login(ctx context.Context, req account.LoginRequest) (*account.LoginResponse, error)
	Register(ctx context.Context, req account.RegisterRequest) (json.RawMessage, error)
	ForgotUsername(ctx context.Context, email string) (*account.MessageResponse, error)
	ForgotPassword(ctx context.Context, email string) (*account.MessageResponse, error)
}

var _ AccountAPI = (*account.Client)(nil)

// Navigator moves the host to a route. Navigation is fire-and-forget; the
// synchronizer never waits on or inspects the outcome.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(path string)

// Navigate calls f(path).
func (f NavigatorFunc) Navigate(path string) {
	if f != nil {
		f(path)
	}
}

type noopNavigator struct{}

func (noopNavigator) Navigate(string) {}

// Credentials are the login inputs.
type Credentials struct {
	Username string
	Password string
}

// Registration is the register input.
type Registration struct {
	Username string
	Email    string
	Password string
}

// AutoLoginPayload is a session handed over by another surface, for example
// an account-confirmation page that already obtained a token.
type AutoLoginPayload struct {
	Token string
	User  session.Profile
}

// Session is the current authentication state of one execution context.
type Session = session.Session

// Profile is the user profile carried by an authenticated [Session].
type Profile = session.Profile

// SessionEvent is one state transition or failed attempt.
type SessionEvent = internalevents.Event

// EventSink receives session events.
type EventSink = internalevents.Sink

// NoOpEventSink drops events.
type NoOpEventSink = internalevents.NoOpSink

// ChannelSink delivers events on a channel.
type ChannelSink = internalevents.ChannelSink

// JSONWriterSink writes events as JSON lines.
type JSONWriterSink = internalevents.JSONWriterSink

// EventSinkFunc adapts a function to [EventSink].
type EventSinkFunc = internalevents.FuncSink

// NewChannelSink creates a channel-backed sink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalevents.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a sink that writes JSON lines to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalevents.NewJSONWriterSink(w)
}

// Event types.
const (
	EventInitRestored      = "init_restored"
	EventInitCleared       = "init_cleared"
	EventLogin             = "login"
	EventLoginFailed       = "login_failed"
	EventAutoLogin         = "auto_login"
	EventLogout            = "logout"
	EventCleared           = "cleared"
	EventRegister          = "register"
	EventRegisterFailed    = "register_failed"
	EventRecoveryRequested = "recovery_requested"
	EventRecoveryFailed    = "recovery_failed"
	EventSyncAdopted       = "sync_adopted"
	EventSyncCleared       = "sync_cleared"
	EventSyncIgnored       = "sync_ignored"
)

// Event origins.
const (
	OriginLocal   = "local"
	OriginForeign = "foreign"
	OriginStorage = "storage"
)
