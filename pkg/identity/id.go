// Package identity implements the 160-bit identifiers used by the Bayeux
// protocol layer: client ids (session handles) and browser-cookie ids.
//
// An ID renders as exactly 40 lowercase hexadecimal characters with leading
// zeros preserved. The high 64 bits come from the wall clock so ids sort
// roughly by creation time; the low 96 bits are cryptographically random.
package identity

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Size is the identifier width in bytes (160 bits).
const Size = 20

// EncodedLen is the length of the canonical hex rendering.
const EncodedLen = Size * 2

var (
	// ErrInvalidLength is returned by Parse when the input is not exactly
	// 40 characters long.
	ErrInvalidLength = errors.New("invalid id length")

	// ErrInvalidValue is returned by Parse when the input contains
	// non-hexadecimal characters.
	ErrInvalidValue = errors.New("invalid id value")
)

// ID is a 160-bit identifier. The zero value is valid (renders as 40 zeros)
// but Generate never produces it.
type ID [Size]byte

// Generate mints a fresh ID. The first 8 bytes hold the current Unix
// nanosecond timestamp (big endian); the remaining 12 bytes are random.
func Generate() ID {
	var id ID
	binary.BigEndian.PutUint64(id[:8], uint64(time.Now().UnixNano()))
	// rand.Read never fails on supported platforms (it panics instead).
	_, _ = rand.Read(id[8:])
	return id
}

// Parse decodes the canonical 40-character hex rendering of an ID.
// It rejects inputs of the wrong length with ErrInvalidLength and inputs
// containing non-hex characters with ErrInvalidValue.
func Parse(s string) (ID, error) {
	var id ID
	if len(s) != EncodedLen {
		return id, fmt.Errorf("%w: %d", ErrInvalidLength, len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("%w: %q", ErrInvalidValue, s)
	}
	return id, nil
}

// String renders the ID as exactly 40 lowercase hex characters.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	buf := make([]byte, EncodedLen)
	hex.Encode(buf, id[:])
	return buf, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ClientID is the session handle minted on handshake and echoed by the
// client on every subsequent request. It shares the ID representation but
// is a distinct type so it cannot be confused with a CookieID.
type ClientID struct{ id ID }

// GenerateClientID mints a fresh client id.
func GenerateClientID() ClientID {
	return ClientID{id: Generate()}
}

// ParseClientID decodes a client id from its hex rendering.
func ParseClientID(s string) (ClientID, error) {
	id, err := Parse(s)
	if err != nil {
		return ClientID{}, err
	}
	return ClientID{id: id}, nil
}

// String renders the client id as 40 lowercase hex characters.
func (c ClientID) String() string { return c.id.String() }

// MarshalText implements encoding.TextMarshaler.
func (c ClientID) MarshalText() ([]byte, error) { return c.id.MarshalText() }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ClientID) UnmarshalText(text []byte) error { return c.id.UnmarshalText(text) }

// CookieID is the value of the BAYEUX_BROWSER cookie that binds every
// session a browser opens to one identity.
type CookieID struct{ id ID }

// GenerateCookieID mints a fresh cookie id.
func GenerateCookieID() CookieID {
	return CookieID{id: Generate()}
}

// ParseCookieID decodes a cookie id from its hex rendering.
func ParseCookieID(s string) (CookieID, error) {
	id, err := Parse(s)
	if err != nil {
		return CookieID{}, err
	}
	return CookieID{id: id}, nil
}

// String renders the cookie id as 40 lowercase hex characters.
func (c CookieID) String() string { return c.id.String() }

// MarshalText implements encoding.TextMarshaler.
func (c CookieID) MarshalText() ([]byte, error) { return c.id.MarshalText() }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CookieID) UnmarshalText(text []byte) error { return c.id.UnmarshalText(text) }
