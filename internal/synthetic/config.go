package synthetic

import "time"

// Config controls the shape of a generated position log.
type Config struct {
	Vessels            int           // number of well-behaved vessels
	PositionsPerVessel int           // reports per vessel
	Start              time.Time     // first report time
	Interval           time.Duration // time between a vessel's reports
	Seed               uint64        // same seed, same log

	TeleportRate  float64 // chance a report is displaced far off track
	CourseLieRate float64 // chance a report carries a wrong COG
	ConflictPairs int     // extra vessels shadowing an existing one at ~50 m
	MalformedRate float64 // chance a row is corrupted

	// WithSOGCOG includes reported SOG/COG columns.
	WithSOGCOG bool
}

// DefaultConfig returns a small mixed log suitable for demos and tests.
func DefaultConfig() Config {
	return Config{
		Vessels:            50,
		PositionsPerVessel: 40,
		Start:              time.Date(2024, 11, 11, 0, 0, 0, 0, time.UTC),
		Interval:           time.Minute,
		Seed:               42,
		TeleportRate:       0.01,
		CourseLieRate:      0.01,
		ConflictPairs:      2,
		MalformedRate:      0.005,
		WithSOGCOG:         true,
	}
}

// Stats counts what was injected into a generated log.
type Stats struct {
	Rows       int
	Vessels    int
	Teleports  int
	CourseLies int
	Shadows    int
	Malformed  int
}
