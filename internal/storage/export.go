package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/sdesim/internal/sim"
)

type ExportData struct {
	Run         RunMetadata        `json:"run"`
	Times       []float64          `json:"times"`
	States      [][][][]float64    `json:"states"`
	LogRatio    [][][]float64      `json:"logqp,omitempty"`
	Stats       sim.Stats          `json:"stats"`
	Diagnostics []string           `json:"diagnostics,omitempty"`
	Metrics     map[string]float64 `json:"metrics"`
}

// NewExportData lays a result out as nested arrays: States is indexed
// [time][block][batch][dim] and LogRatio [block][interval][batch].
func NewExportData(meta RunMetadata, result *sim.Result) ExportData {
	data := ExportData{
		Run:     meta,
		Times:   result.Times,
		States:  make([][][][]float64, len(result.States)),
		Stats:   result.Stats,
		Metrics: result.Metrics,
	}
	for i, s := range result.States {
		data.States[i] = make([][][]float64, len(s))
		for blk, m := range s {
			rows, _ := m.Dims()
			data.States[i][blk] = make([][]float64, rows)
			for b := 0; b < rows; b++ {
				data.States[i][blk][b] = m.RawRowView(b)
			}
		}
	}
	for _, m := range result.LogRatio {
		rows, _ := m.Dims()
		block := make([][]float64, rows)
		for i := range block {
			block[i] = m.RawRowView(i)
		}
		data.LogRatio = append(data.LogRatio, block)
	}
	for _, d := range result.Diagnostics {
		data.Diagnostics = append(data.Diagnostics, d.String())
	}
	return data
}

func ExportJSON(w io.Writer, meta RunMetadata, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(meta, result))
}

func ExportJSONFile(path string, meta RunMetadata, result *sim.Result) error {
	return writeFile(path, func(f *os.File) error {
		return ExportJSON(f, meta, result)
	})
}

func ExportCSVFile(path string, result *sim.Result) error {
	return writeFile(path, func(f *os.File) error {
		return WriteTrajectoryCSV(f, result)
	})
}
