// Package d2p converts actuator lengths into muscle pressures using a
// load-dependent calibration table with hysteresis.
package d2p

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

const loadsHeader = "# weights"

var (
	ErrMissingHeader  = errors.New("load table has no '# weights' header")
	ErrNotAscending   = errors.New("load keys must be strictly ascending")
	ErrColumnMismatch = errors.New("load table column count mismatch")
	ErrRowCount       = errors.New("load table row count mismatch")
	ErrMuscleCount    = errors.New("wrong number of muscle lengths")
)

// LoadTable holds the calibration curves: Up[r] and Down[r] are the
// pressure rows measured at payload Loads[r], indexed by compression.
type LoadTable struct {
	Loads   []int
	Up      [][]int
	Down    [][]int
	Columns int
}

// ActiveTable is the up and down row interpolated for one load.
type ActiveTable [2][]int

// LoadTableFile reads a table from disk.
func LoadTableFile(path string, columns int) (*LoadTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open load table: %w", err)
	}
	defer f.Close()

	t, err := ParseLoadTable(f, columns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParseLoadTable reads a "# weights,..." header followed by 2×R rows of
// comma or whitespace separated integers, up rows first.
func ParseLoadTable(r io.Reader, columns int) (*LoadTable, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		loads []int
		rows  [][]int
		line  int
	)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, loadsHeader) {
			l, err := parseLoads(text)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			loads = l
			continue
		}
		if strings.HasPrefix(text, "#") {
			continue
		}
		if loads == nil {
			return nil, ErrMissingHeader
		}
		row, err := parseRow(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) != columns {
			return nil, fmt.Errorf("%w: line %d has %d values, want %d", ErrColumnMismatch, line, len(row), columns)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read load table: %w", err)
	}
	if loads == nil {
		return nil, ErrMissingHeader
	}
	if len(rows) == 0 || len(rows)%2 != 0 {
		return nil, fmt.Errorf("%w: %d rows cannot split into up and down halves", ErrRowCount, len(rows))
	}
	half := len(rows) / 2
	if half != len(loads) {
		return nil, fmt.Errorf("%w: %d rows per branch for %d loads", ErrRowCount, half, len(loads))
	}

	return &LoadTable{
		Loads:   loads,
		Up:      rows[:half],
		Down:    rows[half:],
		Columns: columns,
	}, nil
}

func parseLoads(header string) ([]int, error) {
	fields := strings.Split(header, ",")[1:]
	for len(fields) > 0 && strings.TrimSpace(fields[len(fields)-1]) == "" {
		fields = fields[:len(fields)-1]
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: header lists no loads", ErrRowCount)
	}
	loads := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("invalid load %q: %w", f, err)
		}
		if i > 0 && v <= loads[i-1] {
			return nil, fmt.Errorf("%w: %d follows %d", ErrNotAscending, v, loads[i-1])
		}
		loads[i] = v
	}
	return loads, nil
}

func parseRow(text string) ([]int, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	row := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid pressure %q: %w", f, err)
		}
		row[i] = v
	}
	return row, nil
}

// Interpolate blends the two rows bracketing load, saturating at the ends
// of the table. Each column is rounded to the nearest integer.
func (t *LoadTable) Interpolate(load float64) ActiveTable {
	return ActiveTable{interpolate(t.Loads, t.Up, load), interpolate(t.Loads, t.Down, load)}
}

func interpolate(loads []int, rows [][]int, load float64) []int {
	last := len(loads) - 1
	if load <= float64(loads[0]) {
		return append([]int(nil), rows[0]...)
	}
	if load >= float64(loads[last]) {
		return append([]int(nil), rows[last]...)
	}

	upper := sort.Search(len(loads), func(i int) bool { return float64(loads[i]) >= load })
	lower := upper - 1
	f := (load - float64(loads[lower])) / float64(loads[upper]-loads[lower])

	out := make([]int, len(rows[lower]))
	for c := range out {
		v := (1-f)*float64(rows[lower][c]) + f*float64(rows[upper][c])
		out[c] = int(math.Round(v))
	}
	return out
}
