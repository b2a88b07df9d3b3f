package goAuthSync

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthSync/account"
)

// Register creates an account and, on success, navigates to the
// confirm-email route with the email as a query parameter. It never touches
// the session.
//
// The returned payload is the API's success body when it is JSON. Failures
// are *account.Error values whose message follows the account error
// normalization rules. Empty fields are rejected with a 400 before the API
// is called.
func (s *Synchronizer) Register(ctx context.Context, reg Registration) (json.RawMessage, error) {
	var (
		data json.RawMessage
		err  error
	)
	if strings.TrimSpace(reg.Email) == "" || reg.Username == "" || reg.Password == "" {
		err = account.InvalidRequest("email, username and password are required")
	} else {
		start := time.Now()
		data, err = s.api.Register(ctx, account.RegisterRequest{
			Email:    reg.Email,
			Username: reg.Username,
			Password: reg.Password,
		})
		s.observeAPI(start)
	}
	if err != nil {
		apiErr := asAccountError(err, account.FallbackRegister)
		s.metrics.Inc(MetricRegisterFailure)
		s.logger.Info("registration rejected", "username", reg.Username, "status", apiErr.StatusCode, "error", apiErr.Message)
		s.emit(ctx, EventRegisterFailed, OriginLocal, apiErr, s.Snapshot(), map[string]string{"username": reg.Username})
		return nil, apiErr
	}

	s.metrics.Inc(MetricRegisterSuccess)
	s.logger.Info("registration accepted", "username", reg.Username)
	s.emit(ctx, EventRegister, OriginLocal, nil, s.Snapshot(), map[string]string{"username": reg.Username})
	s.navigate(ConfirmEmailTarget(s.config.Navigation.ConfirmEmailPath, reg.Email))
	return data, nil
}

// ConfirmEmailTarget returns path with email attached as the percent-encoded
// "email" query parameter. Spaces are encoded as %20.
func ConfirmEmailTarget(path, email string) string {
	return path + "?email=" + strings.ReplaceAll(url.QueryEscape(email), "+", "%20")
}

// ForgotUsername asks the account API to email a username reminder and
// returns the server's confirmation message.
func (s *Synchronizer) ForgotUsername(ctx context.Context, email string) (string, error) {
	return s.recovery(ctx, "forgot_username", email, s.api.ForgotUsername)
}

// ForgotPassword asks the account API to email a password reset link and
// returns the server's confirmation message.
func (s *Synchronizer) ForgotPassword(ctx context.Context, email string) (string, error) {
	return s.recovery(ctx, "forgot_password", email, s.api.ForgotPassword)
}

func (s *Synchronizer) recovery(ctx context.Context, kind, email string, call func(context.Context, string) (*account.MessageResponse, error)) (string, error) {
	var (
		res *account.MessageResponse
		err error
	)
	if strings.TrimSpace(email) == "" {
		err = account.InvalidRequest("email is required")
	} else {
		start := time.Now()
		res, err = call(ctx, email)
		s.observeAPI(start)
	}
	if err != nil {
		apiErr := asAccountError(err, account.FallbackRecovery)
		s.metrics.Inc(MetricRecoveryFailure)
		s.logger.Info("recovery request rejected", "kind", kind, "status", apiErr.StatusCode, "error", apiErr.Message)
		s.emit(ctx, EventRecoveryFailed, OriginLocal, apiErr, s.Snapshot(), map[string]string{"kind": kind})
		return "", apiErr
	}

	s.metrics.Inc(MetricRecoverySuccess)
	s.logger.Debug("recovery request accepted", "kind", kind)
	s.emit(ctx, EventRecoveryRequested, OriginLocal, nil, s.Snapshot(), map[string]string{"kind": kind})
	if res == nil {
		return "", nil
	}
	return res.Message, nil
}
