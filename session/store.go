package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goAuthSync/storage"
)

// ErrRecordAbsent is returned when one or both slots are missing.
var ErrRecordAbsent = errors.New("session record absent")

// ErrRecordCorrupt is returned when both slots exist but the profile slot
// cannot be decoded.
var ErrRecordCorrupt = errors.New("session record corrupt")

// ErrStorageUnavailable wraps substrate failures.
var ErrStorageUnavailable = errors.New("session storage unavailable")

const (
	// DefaultTokenKey is the token slot name used by the web client.
	DefaultTokenKey = "authToken"
	// DefaultUserKey is the profile slot name used by the web client.
	DefaultUserKey = "authUser"
)

// Store reads and writes the two-slot durable record.
type Store struct {
	substrate storage.Substrate
	tokenKey  string
	userKey   string
}

// NewStore creates a record store over substrate. Empty slot names select
// the defaults.
func NewStore(substrate storage.Substrate, tokenKey, userKey string) *Store {
	if tokenKey == "" {
		tokenKey = DefaultTokenKey
	}
	if userKey == "" {
		userKey = DefaultUserKey
	}
	return &Store{
		substrate: substrate,
		tokenKey:  tokenKey,
		userKey:   userKey,
	}
}

// TokenKey returns the token slot name.
func (s *Store) TokenKey() string { return s.tokenKey }

// UserKey returns the profile slot name.
func (s *Store) UserKey() string { return s.userKey }

// IsSlot reports whether key is one of the two record slots.
func (s *Store) IsSlot(key string) bool {
	return key == s.tokenKey || key == s.userKey
}

// Load reads both slots at one instant.
//
// Load returns [ErrRecordAbsent] when either slot is missing or empty,
// [ErrRecordCorrupt] when the profile does not decode, and an error wrapping
// [ErrStorageUnavailable] when the substrate fails.
func (s *Store) Load(ctx context.Context) (Record, error) {
	slots, err := s.substrate.Read(ctx, s.tokenKey, s.userKey)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	token, raw := slots[s.tokenKey], slots[s.userKey]
	if token == "" || raw == "" {
		return Record{}, ErrRecordAbsent
	}

	profile, err := DecodeProfile([]byte(raw))
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
	}
	return Record{Token: token, Profile: *profile}, nil
}

// Save writes both slots in one batch. Other contexts never see the new
// profile next to the previous token.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if !rec.Valid() {
		return errors.New("invalid session record")
	}
	data, err := EncodeProfile(&rec.Profile)
	if err != nil {
		return err
	}
	err = s.substrate.Apply(ctx,
		storage.Put(s.userKey, string(data)),
		storage.Put(s.tokenKey, rec.Token),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Delete removes both slots in one batch. Deleting an absent record is a
// no-op.
func (s *Store) Delete(ctx context.Context) error {
	if err := s.substrate.Apply(ctx, storage.Remove(s.userKey), storage.Remove(s.tokenKey)); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
