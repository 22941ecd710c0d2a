package packet

import (
	"errors"
	"fmt"
)

var (
	ErrShortHeader       = errors.New("datagram shorter than header")
	ErrUnsupportedFormat = errors.New("unsupported packet format")
	ErrSizeMismatch      = errors.New("datagram size mismatch")
)

// DecodeError describes a rejected datagram
type DecodeError struct {
	PacketID Kind
	Format   uint16
	Len      int
	// Want is the expected size, only set for ErrSizeMismatch
	Want int
	Err  error
}

func (e *DecodeError) Error() string {
	switch {
	case errors.Is(e.Err, ErrSizeMismatch):
		return fmt.Sprintf("packet %s: %v: got %d bytes, want %d",
			e.PacketID, e.Err, e.Len, e.Want)
	case errors.Is(e.Err, ErrUnsupportedFormat):
		return fmt.Sprintf("packet %s: %v %d", e.PacketID, e.Err, e.Format)
	default:
		return fmt.Sprintf("%v: got %d bytes", e.Err, e.Len)
	}
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses a single datagram. Decoding is pure, the returned packet
// does not share memory with data.
func Decode(data []byte) (Packet, error) {
	if len(data) < HeaderSize {
		return nil, &DecodeError{Len: len(data), Err: ErrShortHeader}
	}
	r := reader{buf: data}
	h := decodeHeader(r)
	if h.PacketFormat != Format {
		return nil, &DecodeError{
			PacketID: h.PacketID,
			Format:   h.PacketFormat,
			Len:      len(data),
			Err:      ErrUnsupportedFormat,
		}
	}
	want, ok := Size(h.PacketID)
	if !ok {
		return &Skip{Header: h}, nil
	}
	if len(data) != want {
		return nil, &DecodeError{
			PacketID: h.PacketID,
			Format:   h.PacketFormat,
			Len:      len(data),
			Want:     want,
			Err:      ErrSizeMismatch,
		}
	}
	body := r.at(HeaderSize)
	switch h.PacketID {
	case KindSession:
		return decodeSession(h, body), nil
	case KindLapData:
		return decodeLapData(h, body), nil
	case KindEvent:
		return decodeEvent(h, body), nil
	case KindParticipants:
		return decodeParticipants(h, body), nil
	case KindCarTelemetry:
		return decodeCarTelemetry(h, body), nil
	case KindCarStatus:
		return decodeCarStatus(h, body), nil
	case KindCarDamage:
		return decodeCarDamage(h, body), nil
	case KindTyreSets:
		return decodeTyreSets(h, body), nil
	}
	return &Skip{Header: h}, nil
}
