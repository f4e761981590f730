package synthetic

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/okian/spoofwatch/internal/domain/model"
)

// Column names written by the generator, matching the AIS export header.
const (
	ColumnTimestamp = "# Timestamp"
	ColumnMMSI      = "MMSI"
	ColumnLatitude  = "Latitude"
	ColumnLongitude = "Longitude"
	ColumnSOG       = "SOG"
	ColumnCOG       = "COG"
)

// WriteCSV writes records as CSV with a header row. SOG/COG columns are
// written only when withSOGCOG is set. Missing numbers are written empty.
func WriteCSV(w io.Writer, records []model.Record, withSOGCOG bool) error {
	cw := csv.NewWriter(w)

	header := []string{ColumnTimestamp, ColumnMMSI, ColumnLatitude, ColumnLongitude}
	if withSOGCOG {
		header = append(header, ColumnSOG, ColumnCOG)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(header))
	for i := range records {
		r := &records[i]
		row[0], row[1], row[2], row[3] = r.Timestamp, r.MMSI, number(r.Latitude), number(r.Longitude)
		if withSOGCOG {
			row[4], row[5] = number(r.SOG), number(r.COG)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteNDJSON writes one JSON object per record using the same field names
// as the CSV header. Missing numbers are written as null.
func WriteNDJSON(w io.Writer, records []model.Record, withSOGCOG bool) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	for i := range records {
		r := &records[i]
		obj := map[string]any{
			ColumnTimestamp: r.Timestamp,
			ColumnMMSI:      r.MMSI,
			ColumnLatitude:  nullable(r.Latitude),
			ColumnLongitude: nullable(r.Longitude),
		}
		if withSOGCOG {
			obj[ColumnSOG] = nullable(r.SOG)
			obj[ColumnCOG] = nullable(r.COG)
		}
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	return bw.Flush()
}

func number(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func nullable(f float64) any {
	if math.IsNaN(f) {
		return nil
	}
	return f
}
