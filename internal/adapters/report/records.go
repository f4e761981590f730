package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/okian/spoofwatch/internal/domain/model"
)

// TimestampLayout renders timestamps in the AIS export format.
const TimestampLayout = "01/02/2006 15:04:05"

var positionHeader = []string{
	"# Timestamp", "MMSI", "Latitude", "Longitude", "SOG", "COG",
	"distance_km", "time_diff_h", "speed_kmh", "bearing_deg",
}

// WriteCleaned writes cleaned positions with their derived kinematics.
func WriteCleaned(w io.Writer, positions []model.Position) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(positionHeader); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	for i := range positions {
		if err := cw.Write(positionRow(positions[i])); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}
	return flush(cw)
}

// WriteAnomalies writes flagged positions followed by the flagging reason.
func WriteAnomalies(w io.Writer, anomalies []model.Anomaly) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string(nil), positionHeader...), "reason")); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	for i := range anomalies {
		row := append(positionRow(anomalies[i].Position), string(anomalies[i].Reason))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}
	return flush(cw)
}

func positionRow(p model.Position) []string {
	k := p.Kinematics
	row := []string{
		p.Timestamp.Format(TimestampLayout),
		p.MMSI,
		strconv.FormatFloat(p.Latitude, 'f', -1, 64),
		strconv.FormatFloat(p.Longitude, 'f', -1, 64),
		optional(p.SOG, p.SOGKnown),
		optional(p.COG, p.COGKnown),
	}
	if !k.Derived {
		return append(row, "", "", "", "")
	}
	return append(row,
		strconv.FormatFloat(k.DistanceKm, 'f', 6, 64),
		strconv.FormatFloat(k.ElapsedHours, 'f', 6, 64),
		strconv.FormatFloat(k.SpeedKmh, 'f', 6, 64),
		strconv.FormatFloat(k.BearingDeg, 'f', 6, 64),
	)
}

func optional(v float64, known bool) string {
	if !known {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func flush(cw *csv.Writer) error {
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
