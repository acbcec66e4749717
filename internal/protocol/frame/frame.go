package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// PrefixLen is the size of the big-endian length prefix that precedes every payload.
const PrefixLen = 4

// DefaultMaxPayloadBytes matches the server's default message ceiling.
const DefaultMaxPayloadBytes = 32 * 1024 * 1024

var (
	ErrShortPrefix     = errors.New("frame: short length prefix")
	ErrInvalidLength   = errors.New("frame: invalid length prefix")
	ErrEmptyPayload    = errors.New("frame: empty payload")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: DefaultMaxPayloadBytes}
}

func (l Limits) WithDefaults() Limits {
	if l.MaxPayloadBytes <= 0 {
		l.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	return l
}

// Encode returns prefix+payload in one buffer so the caller can write it in a single call.
func Encode(payload []byte, limits Limits) ([]byte, error) {
	if err := CheckLength(int64(len(payload)), limits); err != nil {
		return nil, err
	}
	buf := make([]byte, PrefixLen+len(payload))
	binary.BigEndian.PutUint32(buf[:PrefixLen], uint32(len(payload)))
	copy(buf[PrefixLen:], payload)
	return buf, nil
}

// DecodePrefix interprets b as a signed 32-bit length and validates it against limits.
func DecodePrefix(b []byte, limits Limits) (int, error) {
	if len(b) != PrefixLen {
		return 0, fmt.Errorf("%w: %d bytes", ErrShortPrefix, len(b))
	}
	size := int64(int32(binary.BigEndian.Uint32(b)))
	if err := CheckLength(size, limits); err != nil {
		return 0, err
	}
	return int(size), nil
}

func CheckLength(size int64, limits Limits) error {
	limits = limits.WithDefaults()
	if size <= 0 {
		if size == 0 {
			return ErrEmptyPayload
		}
		return fmt.Errorf("%w: %d", ErrInvalidLength, size)
	}
	if size > int64(limits.MaxPayloadBytes) {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, size, limits.MaxPayloadBytes)
	}
	return nil
}

// ReadFrame is the plain blocking reader used by peers that need no retry discipline.
func ReadFrame(r io.Reader, limits Limits) ([]byte, error) {
	var prefix [PrefixLen]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortPrefix
		}
		return nil, err
	}
	size, err := DecodePrefix(prefix[:], limits)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func WriteFrame(w io.Writer, payload []byte, limits Limits) error {
	buf, err := Encode(payload, limits)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}
