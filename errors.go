package goAuthSync

import (
	"errors"

	"github.com/MrEthical07/goAuthSync/session"
)

var (
	// ErrSessionPersistFailed is returned when a login succeeded remotely but
	// the session could not be written to durable storage. The in-memory
	// session is left unchanged.
	ErrSessionPersistFailed = errors.New("session persist failed")
	// ErrStorageUnavailable is returned when durable storage cannot be read
	// or written.
	ErrStorageUnavailable = session.ErrStorageUnavailable
	// ErrSynchronizerClosed is returned by Start after Close.
	ErrSynchronizerClosed = errors.New("synchronizer closed")
	// ErrAutoLoginInvalid is returned when an auto-login hand-off lacks a
	// token or username.
	ErrAutoLoginInvalid = errors.New("auto-login requires token and username")
)
