// Package report writes experiment results, anomalies and cleaned positions
// as CSV, and renders a text chart of speedup against worker count.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/okian/spoofwatch/internal/experiment"
)

// ResultsHeader is the column layout of the experiment results file.
var ResultsHeader = []string{
	"run_id",
	"chunk_size",
	"num_workers",
	"time_sq",
	"time_pl",
	"speedup",
	"peak_cpu_sq",
	"peak_cpu_pr",
	"peak_mem_sq_MB",
	"peak_mem_pl_MB",
	"sq_total_valid_records",
	"sq_anomaly_records",
	"pl_total_valid_records",
	"pl_anomaly_records",
	"equivalent",
	"chunk_p95_ms",
}

// ResultsFile appends experiment rows to a CSV file, writing the header
// only when the file starts empty.
type ResultsFile struct {
	f *os.File
	w *csv.Writer
}

// OpenResults opens or creates path for appending.
func OpenResults(path string) (*ResultsFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	rf := &ResultsFile{f: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := rf.write(ResultsHeader); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return rf, nil
}

// Append writes one row and flushes it.
func (rf *ResultsFile) Append(r experiment.Result) error {
	return rf.write(resultRow(r))
}

// Close closes the file.
func (rf *ResultsFile) Close() error {
	return rf.f.Close()
}

func (rf *ResultsFile) write(row []string) error {
	if err := rf.w.Write(row); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	rf.w.Flush()
	if err := rf.w.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// WriteResults writes a header and every row to w.
func WriteResults(w io.Writer, rows []experiment.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ResultsHeader); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	for _, r := range rows {
		if err := cw.Write(resultRow(r)); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

func resultRow(r experiment.Result) []string {
	return []string{
		r.RunID,
		strconv.Itoa(r.ChunkSize),
		strconv.Itoa(r.Workers),
		num(r.TimeSeq.Seconds()),
		num(r.TimePar.Seconds()),
		num(r.Speedup),
		num(r.PeakCPUSeq),
		num(r.PeakCPUPar),
		num(r.PeakMemSeqMB),
		num(r.PeakMemParMB),
		strconv.Itoa(r.SeqValid),
		strconv.Itoa(r.SeqAnomalies),
		strconv.Itoa(r.ParValid),
		strconv.Itoa(r.ParAnomalies),
		strconv.FormatBool(r.Equivalent),
		num(r.ChunkP95Ms),
	}
}

func num(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	return strconv.FormatFloat(f, 'f', 4, 64)
}
