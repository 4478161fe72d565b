package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/sim"
	"gonum.org/v1/gonum/mat"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteTrajectoryCSV writes one row per (output index, block, batch
// element): step, time, block, batch, then the state values of that row.
func WriteTrajectoryCSV(out io.Writer, result *sim.Result) error {
	w := csv.NewWriter(out)

	width := 0
	if len(result.States) > 0 {
		for _, d := range result.States[0].Dims() {
			width = max(width, d)
		}
	}
	header := []string{"step", "time", "block", "batch"}
	for i := 0; i < width; i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, s := range result.States {
		for blk, m := range s {
			rows, cols := m.Dims()
			for b := 0; b < rows; b++ {
				row := []string{strconv.Itoa(i), formatFloat(result.Times[i]), strconv.Itoa(blk), strconv.Itoa(b)}
				for j := 0; j < cols; j++ {
					row = append(row, formatFloat(m.At(b, j)))
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
	}
	w.Flush()
	return w.Error()
}

// ReadTrajectoryCSV parses what WriteTrajectoryCSV wrote.
func ReadTrajectoryCSV(in io.Reader) (*sim.Result, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	result := &sim.Result{Metrics: make(map[string]float64)}
	if len(records) < 2 {
		return result, nil
	}

	// rows[step][block][batch]
	var rows [][][][]float64
	for n, record := range records[1:] {
		if len(record) < 4 {
			return nil, errors.Errorf("line %d: expected at least 4 fields, got %d", n+2, len(record))
		}
		ints, err := atois(record[0], record[2], record[3])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n+2)
		}
		step, blk, b := ints[0], ints[1], ints[2]
		t, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n+2)
		}
		values, err := parseFloats(record[4:])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n+2)
		}

		for len(rows) <= step {
			rows = append(rows, nil)
			result.Times = append(result.Times, 0)
		}
		result.Times[step] = t
		for len(rows[step]) <= blk {
			rows[step] = append(rows[step], nil)
		}
		for len(rows[step][blk]) <= b {
			rows[step][blk] = append(rows[step][blk], nil)
		}
		rows[step][blk][b] = values
	}

	for i, blocks := range rows {
		s := make(dynamo.State, len(blocks))
		for blk, batch := range blocks {
			m, err := dense(batch)
			if err != nil {
				return nil, errors.Wrapf(err, "step %d block %d", i, blk)
			}
			s[blk] = m
		}
		result.States = append(result.States, s)
	}
	return result, nil
}

// WriteLogqpCSV writes one row per (block, interval): block, interval,
// t0, t1, then one log-ratio value per batch element.
func WriteLogqpCSV(out io.Writer, result *sim.Result) error {
	w := csv.NewWriter(out)

	batch := 0
	if len(result.LogRatio) > 0 {
		_, batch = result.LogRatio[0].Dims()
	}
	header := []string{"block", "interval", "t0", "t1"}
	for b := 0; b < batch; b++ {
		header = append(header, fmt.Sprintf("b%d", b))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for blk, m := range result.LogRatio {
		rows, cols := m.Dims()
		for i := 0; i < rows; i++ {
			row := []string{strconv.Itoa(blk), strconv.Itoa(i), formatFloat(result.Times[i]), formatFloat(result.Times[i+1])}
			for b := 0; b < cols; b++ {
				row = append(row, formatFloat(m.At(i, b)))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

// ReadLogqpCSV parses what WriteLogqpCSV wrote into one (intervals, batch)
// matrix per block.
func ReadLogqpCSV(in io.Reader) ([]*mat.Dense, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	var blocks [][][]float64
	for n, record := range records[min(1, len(records)):] {
		if len(record) < 4 {
			return nil, errors.Errorf("line %d: expected at least 4 fields, got %d", n+2, len(record))
		}
		ints, err := atois(record[0], record[1])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n+2)
		}
		values, err := parseFloats(record[4:])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n+2)
		}
		blk, i := ints[0], ints[1]
		for len(blocks) <= blk {
			blocks = append(blocks, nil)
		}
		for len(blocks[blk]) <= i {
			blocks[blk] = append(blocks[blk], nil)
		}
		blocks[blk][i] = values
	}

	out := make([]*mat.Dense, len(blocks))
	for blk, rows := range blocks {
		m, err := dense(rows)
		if err != nil {
			return nil, errors.Wrapf(err, "block %d", blk)
		}
		out[blk] = m
	}
	return out, nil
}

func dense(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || rows[0] == nil {
		return nil, errors.New("missing rows")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, errors.Wrapf(dynamo.ErrDimensionMismatch, "row %d has %d values, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	if cols == 0 {
		return nil, errors.New("empty rows")
	}
	return mat.NewDense(len(rows), cols, data), nil
}

func atois(fields ...string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, errors.Errorf("negative index %d", v)
		}
		out[i] = v
	}
	return out, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
