package state

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mpapenbr/f1-race-engineer/pkg/packet"
)

// MaxDrivers is the number of drivers tracked concurrently
const MaxDrivers = 2

var ErrInvalidBinding = errors.New("invalid driver binding")

type SlotKind int

const (
	// SlotPlayer follows the player car index of the header
	SlotPlayer SlotKind = iota
	// SlotSecondary follows the secondary player car index (split screen)
	SlotSecondary
	// SlotCar is a fixed car index
	SlotCar
)

// Binding maps a driver id to a car
type Binding struct {
	DriverID string
	Slot     SlotKind
	CarIndex uint8
}

// DefaultBindings tracks the player car only
func DefaultBindings() []Binding {
	return []Binding{{DriverID: "player", Slot: SlotPlayer}}
}

// resolve returns the car index of the binding for the given header
func (b Binding) resolve(h *packet.Header) (uint8, bool) {
	var idx uint8
	switch b.Slot {
	case SlotPlayer:
		idx = h.PlayerCarIndex
	case SlotSecondary:
		idx = h.SecondaryPlayerCarIndex
	case SlotCar:
		idx = b.CarIndex
	}
	if idx == packet.InvalidCarIndex || int(idx) >= packet.NumCars {
		return 0, false
	}
	return idx, true
}

func (b Binding) String() string {
	switch b.Slot {
	case SlotPlayer:
		return b.DriverID + "=player"
	case SlotSecondary:
		return b.DriverID + "=secondary"
	case SlotCar:
	}
	return fmt.Sprintf("%s=car:%d", b.DriverID, b.CarIndex)
}

// ParseBinding parses "<driver>=player", "<driver>=secondary" or "<driver>=car:<index>"
func ParseBinding(s string) (Binding, error) {
	id, target, ok := strings.Cut(strings.TrimSpace(s), "=")
	if !ok || id == "" {
		return Binding{}, fmt.Errorf("%w: %q", ErrInvalidBinding, s)
	}
	switch {
	case target == "player":
		return Binding{DriverID: id, Slot: SlotPlayer}, nil
	case target == "secondary":
		return Binding{DriverID: id, Slot: SlotSecondary}, nil
	case strings.HasPrefix(target, "car:"):
		idx, err := strconv.ParseUint(strings.TrimPrefix(target, "car:"), 10, 8)
		if err != nil || idx >= packet.NumCars {
			return Binding{}, fmt.Errorf("%w: car index in %q", ErrInvalidBinding, s)
		}
		return Binding{DriverID: id, Slot: SlotCar, CarIndex: uint8(idx)}, nil
	}
	return Binding{}, fmt.Errorf("%w: %q", ErrInvalidBinding, s)
}

// ParseBindings parses a list of bindings. An empty list yields DefaultBindings.
func ParseBindings(specs []string) ([]Binding, error) {
	if len(specs) == 0 {
		return DefaultBindings(), nil
	}
	if len(specs) > MaxDrivers {
		return nil, fmt.Errorf("%w: at most %d drivers", ErrInvalidBinding, MaxDrivers)
	}
	ret := make([]Binding, 0, len(specs))
	seen := map[string]bool{}
	for _, s := range specs {
		b, err := ParseBinding(s)
		if err != nil {
			return nil, err
		}
		if seen[b.DriverID] {
			return nil, fmt.Errorf("%w: duplicate driver %q", ErrInvalidBinding, b.DriverID)
		}
		seen[b.DriverID] = true
		ret = append(ret, b)
	}
	return ret, nil
}
