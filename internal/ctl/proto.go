// Package ctl implements the structured control channel of the rule
// store: fixed-layout binary request records over a Unix socket, the
// user-space equivalent of the legacy ioctl surface.
package ctl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sectools/secrules/internal/rulestore"
)

// Request opcodes. Values match the legacy ioctl command numbering.
const (
	OpAdd    uint8 = 1
	OpRemove uint8 = 2
	OpRead   uint8 = 3
)

const (
	// RuleFieldSize is the fixed on-wire rule field: up to 255 rule
	// bytes plus a mandatory NUL, zero padded.
	RuleFieldSize = rulestore.MaxRuleLen + 1

	// RequestSize is the length of every request frame: op, uid and the
	// rule field. Read requests carry the same frame with the rule field
	// unused, mirroring the single ioctl argument struct.
	RequestSize = 1 + 4 + RuleFieldSize

	// RuleBufferSize caps the payload of a read response.
	RuleBufferSize = RuleFieldSize * 16
)

// Response status codes.
const (
	StatusOK          uint8 = 0
	StatusMalformed   uint8 = 1
	StatusRuleTooLong uint8 = 2
	StatusInvalidRule uint8 = 3
	StatusCapacity    uint8 = 4
	StatusInternal    uint8 = 5
)

var (
	ErrMalformedRequest = errors.New("malformed control request")
	ErrUnknownOp        = errors.New("unknown control op")
)

// Request is a decoded control record.
type Request struct {
	Op   uint8
	UID  uint32
	Rule string
}

// MarshalBinary encodes the request into a fixed RequestSize frame,
// little-endian uid, NUL-terminated zero-padded rule field.
func (r *Request) MarshalBinary() ([]byte, error) {
	switch r.Op {
	case OpAdd, OpRemove, OpRead:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOp, r.Op)
	}
	if len(r.Rule) >= RuleFieldSize {
		return nil, rulestore.ErrRuleTooLong
	}
	if bytes.ContainsRune([]byte(r.Rule), 0) {
		return nil, rulestore.ErrInvalidRule
	}

	frame := make([]byte, RequestSize)
	frame[0] = r.Op
	binary.LittleEndian.PutUint32(frame[1:5], r.UID)
	copy(frame[5:], r.Rule)
	return frame, nil
}

// DecodeRequest parses a request frame. Anything that is not a complete,
// NUL-terminated record with a known op is rejected here; the store is
// never exposed to partially decoded input.
func DecodeRequest(frame []byte) (*Request, error) {
	if len(frame) != RequestSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedRequest, len(frame), RequestSize)
	}

	op := frame[0]
	switch op {
	case OpAdd, OpRemove, OpRead:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOp, op)
	}

	ruleField := frame[5:]
	nul := bytes.IndexByte(ruleField, 0)
	if nul < 0 {
		return nil, fmt.Errorf("%w: rule field not NUL-terminated", ErrMalformedRequest)
	}

	return &Request{
		Op:   op,
		UID:  binary.LittleEndian.Uint32(frame[1:5]),
		Rule: string(ruleField[:nul]),
	}, nil
}

// statusOf maps store and decode errors to a wire status byte.
func statusOf(err error) uint8 {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrMalformedRequest), errors.Is(err, ErrUnknownOp):
		return StatusMalformed
	case errors.Is(err, rulestore.ErrRuleTooLong):
		return StatusRuleTooLong
	case errors.Is(err, rulestore.ErrInvalidRule):
		return StatusInvalidRule
	case errors.Is(err, rulestore.ErrCapacityExceeded):
		return StatusCapacity
	default:
		return StatusInternal
	}
}

// errOf is the client-side inverse of statusOf.
func errOf(status uint8) error {
	switch status {
	case StatusOK:
		return nil
	case StatusMalformed:
		return ErrMalformedRequest
	case StatusRuleTooLong:
		return rulestore.ErrRuleTooLong
	case StatusInvalidRule:
		return rulestore.ErrInvalidRule
	case StatusCapacity:
		return rulestore.ErrCapacityExceeded
	default:
		return fmt.Errorf("control server error (status %d)", status)
	}
}
