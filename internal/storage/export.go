package storage

import (
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"

	"github.com/san-kum/barrace/internal/race"
)

type ExportEntry struct {
	Rank  int     `json:"rank"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type ExportFrame struct {
	Index    int           `json:"index"`
	Interval string        `json:"interval"`
	Entries  []ExportEntry `json:"entries"`
}

type ExportData struct {
	Run    RunMetadata   `json:"run"`
	Frames []ExportFrame `json:"frames"`
}

func exportData(meta *RunMetadata, frames []race.Frame) ExportData {
	data := ExportData{
		Run:    *meta,
		Frames: make([]ExportFrame, len(frames)),
	}
	for i, fr := range frames {
		entries := make([]ExportEntry, len(fr.Entries))
		for j, e := range fr.Entries {
			entries[j] = ExportEntry{Rank: e.Rank, Name: e.Name, Value: e.Value}
		}
		data.Frames[i] = ExportFrame{Index: fr.Index, Interval: fr.Interval, Entries: entries}
	}
	return data
}

// ExportJSON writes a stored run and its frames as one indented document.
func ExportJSON(w io.Writer, meta *RunMetadata, frames []race.Frame) error {
	out, err := sonic.ConfigStd.MarshalIndent(exportData(meta, frames), "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}

func ExportJSONFile(path string, meta *RunMetadata, frames []race.Frame) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return ExportJSON(file, meta, frames)
}
