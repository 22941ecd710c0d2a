package model

type DrivingStyle string

const (
	StyleAggressive   DrivingStyle = "aggressive"
	StyleBalanced     DrivingStyle = "balanced"
	StyleConservative DrivingStyle = "conservative"
)

// Profile holds the driver preferences supplied at session start.
// The core never modifies a profile.
//
//nolint:tagliatelle // file format compatibility
type Profile struct {
	DriverID      string       `json:"driverId" yaml:"driverId"`
	Name          string       `json:"name" yaml:"name"`
	DrivingStyle  DrivingStyle `json:"drivingStyle" yaml:"drivingStyle"`
	PreferredTyre string       `json:"preferredTyre" yaml:"preferredTyre"`
	BrakeBias     int          `json:"brakeBias" yaml:"brakeBias"`
	ERSMode       string       `json:"ersMode" yaml:"ersMode"`
}

// DefaultProfile mirrors the values a new driver gets
func DefaultProfile(driverID string) Profile {
	return Profile{
		DriverID:      driverID,
		DrivingStyle:  StyleBalanced,
		PreferredTyre: "medium",
		BrakeBias:     56,
		ERSMode:       "balanced",
	}
}
