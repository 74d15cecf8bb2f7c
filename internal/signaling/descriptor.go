// Package signaling holds the session descriptors that the two peers paste
// to each other by hand. There is no signaling server.
package signaling

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Descriptor types.
const (
	TypeOffer  = "offer"
	TypeAnswer = "answer"
)

// ErrParse marks text that is not a usable session descriptor.
var ErrParse = errors.New("invalid session descriptor")

// Descriptor is a complete SDP offer or answer with every ICE candidate already
// folded in. Its JSON shape matches a browser RTCSessionDescription.
type Descriptor struct {
	Type string `json:"type" msgpack:"t"`
	SDP  string `json:"sdp" msgpack:"s"`
}

// Validate checks the type tag and that an SDP body is present.
func (d Descriptor) Validate() error {
	switch d.Type {
	case TypeOffer, TypeAnswer:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrParse, d.Type)
	}
	if strings.TrimSpace(d.SDP) == "" {
		return fmt.Errorf("%w: empty sdp", ErrParse)
	}
	return nil
}

// IsOffer reports whether d is an offer.
func (d Descriptor) IsOffer() bool { return d.Type == TypeOffer }

// JSON renders d as a single line of JSON.
func (d Descriptor) JSON() string {
	b, err := json.Marshal(d)
	if err != nil {
		// two plain strings always marshal
		panic(err)
	}
	return string(b)
}

// Parse accepts either the JSON form or the compact form of a descriptor.
// Every failure wraps ErrParse.
func Parse(text string) (Descriptor, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Descriptor{}, fmt.Errorf("%w: empty input", ErrParse)
	}

	var (
		d   Descriptor
		err error
	)
	if strings.HasPrefix(text, compactPrefix) {
		d, err = decodeCompact(strings.TrimPrefix(text, compactPrefix))
	} else {
		err = json.Unmarshal([]byte(text), &d)
	}
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// Encode renders d for display, compact or JSON.
func Encode(d Descriptor, compact bool) (string, error) {
	if !compact {
		return d.JSON(), nil
	}
	body, err := encodeCompact(d)
	if err != nil {
		return "", err
	}
	return compactPrefix + body, nil
}
