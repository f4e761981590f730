package ingest

// Default reader settings.
const (
	DefaultChunkSize = 500000
	maxLineBytes     = 1 << 20
)

// Columns names the fields of a position log.
type Columns struct {
	Timestamp string
	MMSI      string
	Latitude  string
	Longitude string
	SOG       string
	COG       string
}

// DefaultColumns returns the AIS export field names.
func DefaultColumns() Columns {
	return Columns{
		Timestamp: "# Timestamp",
		MMSI:      "MMSI",
		Latitude:  "Latitude",
		Longitude: "Longitude",
		SOG:       "SOG",
		COG:       "COG",
	}
}

type options struct {
	chunkSize int
	columns   Columns
}

func defaultOptions() options {
	return options{chunkSize: DefaultChunkSize, columns: DefaultColumns()}
}

// Option applies a configuration option to a reader.
type Option func(*options)

// WithChunkSize sets the maximum number of records per chunk.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithColumns overrides field names. Empty names keep their default.
func WithColumns(c Columns) Option {
	return func(o *options) {
		set := func(dst *string, v string) {
			if v != "" {
				*dst = v
			}
		}
		set(&o.columns.Timestamp, c.Timestamp)
		set(&o.columns.MMSI, c.MMSI)
		set(&o.columns.Latitude, c.Latitude)
		set(&o.columns.Longitude, c.Longitude)
		set(&o.columns.SOG, c.SOG)
		set(&o.columns.COG, c.COG)
	}
}
