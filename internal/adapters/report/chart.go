package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/okian/spoofwatch/internal/experiment"
)

const chartWidth = 40

// Chart renders speedup against worker count as horizontal bars, one block
// per chunk size. Bars are scaled to the largest finite speedup.
func Chart(w io.Writer, rows []experiment.Result) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no results")
		return err
	}

	bySize := make(map[int][]experiment.Result)
	maxSpeedup := 0.0
	for _, r := range rows {
		bySize[r.ChunkSize] = append(bySize[r.ChunkSize], r)
		if !math.IsInf(r.Speedup, 0) && r.Speedup > maxSpeedup {
			maxSpeedup = r.Speedup
		}
	}
	sizes := make([]int, 0, len(bySize))
	for size := range bySize {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)

	var b strings.Builder
	b.WriteString("Speedup vs workers\n")
	for _, size := range sizes {
		group := bySize[size]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Workers < group[j].Workers })

		fmt.Fprintf(&b, "\nchunk size %s\n", humanize.Comma(int64(size)))
		for _, r := range group {
			fmt.Fprintf(&b, "  %3d workers |%-*s| %s\n",
				r.Workers, chartWidth, bar(r.Speedup, maxSpeedup), label(r.Speedup))
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

func bar(v, maxV float64) string {
	switch {
	case math.IsInf(v, 1):
		return strings.Repeat("#", chartWidth)
	case maxV <= 0 || v <= 0:
		return ""
	}
	n := int(math.Round(v / maxV * chartWidth))
	return strings.Repeat("#", min(n, chartWidth))
}

func label(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return humanize.FormatFloat("#,###.##", v) + "x"
}
