package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrProfileCorrupt is returned when a stored profile cannot be decoded.
var ErrProfileCorrupt = errors.New("profile corrupt")

// EncodeProfile serializes p into the profile slot format.
func EncodeProfile(p *Profile) ([]byte, error) {
	if p == nil {
		return nil, errors.New("nil profile")
	}
	if p.Username == "" {
		return nil, errors.New("profile username required")
	}
	return json.Marshal(p)
}

// DecodeProfile parses the profile slot. Anything other than a JSON object
// with a non-empty username is rejected with [ErrProfileCorrupt].
func DecodeProfile(data []byte) (*Profile, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrProfileCorrupt
	}

	var p Profile
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileCorrupt, err)
	}
	if p.Username == "" {
		return nil, fmt.Errorf("%w: missing username", ErrProfileCorrupt)
	}
	return &p, nil
}
