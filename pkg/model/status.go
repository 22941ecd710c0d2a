package model

import (
	"fmt"
	"time"
)

// State is the lifecycle state of the ingestion loop
type State int

const (
	StateIdle State = iota
	StateListening
	StateActive
	StateStalled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateActive:
		return "active"
	case StateStalled:
		return "stalled"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for _, c := range []State{StateIdle, StateListening, StateActive, StateStalled} {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

type StatusKind string

const (
	StatusTransition       StatusKind = "transition"
	StatusTelemetryLost    StatusKind = "telemetry-lost"
	StatusTelemetryResumed StatusKind = "telemetry-resumed"
)

//nolint:tagliatelle // consumer compatibility
type StatusChange struct {
	From       State      `json:"from"`
	To         State      `json:"to"`
	Kind       StatusKind `json:"kind"`
	SessionUID uint64     `json:"sessionUid"`
	Timestamp  time.Time  `json:"timestamp"`
}
