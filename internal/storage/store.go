package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"github.com/san-kum/barrace/internal/race"
)

var ErrNotFound = errors.New("storage: run not found")

// Store keeps one directory per playback run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes a stored run.
type RunMetadata struct {
	ID           string            `json:"id"`
	Source       string            `json:"source"`
	Timestamp    time.Time         `json:"timestamp"`
	TopN         int               `json:"top_n"`
	PeriodMs     int64             `json:"period_ms"`
	TransitionMs int64             `json:"transition_ms"`
	Intervals    []string          `json:"intervals"`
	Entities     int               `json:"entities"`
	Leaders      map[string]string `json:"leaders"`
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func runName(source string) string {
	base := filepath.Base(source)
	base = base[:len(base)-len(filepath.Ext(base))]
	base = unsafeChars.ReplaceAllString(base, "-")
	if base == "" || base == "-" {
		return "run"
	}
	return base
}

// Save writes metadata.json and frames.csv for the frames of one playback
// and returns the new run id.
func (s *Store) Save(source string, opts race.Options, frames []race.Frame) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", runName(source), now.Unix())
	runDir := filepath.Join(s.baseDir, runID)
	for i := 2; ; i++ {
		if _, err := os.Stat(runDir); os.IsNotExist(err) {
			break
		}
		runID = fmt.Sprintf("%s_%d_%d", runName(source), now.Unix(), i)
		runDir = filepath.Join(s.baseDir, runID)
	}

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:           runID,
		Source:       source,
		Timestamp:    now,
		TopN:         opts.TopN,
		PeriodMs:     opts.Period.Milliseconds(),
		TransitionMs: opts.Transition.Milliseconds(),
		Leaders:      make(map[string]string, len(frames)),
	}
	names := make(map[string]bool)
	for _, f := range frames {
		meta.Intervals = append(meta.Intervals, f.Interval)
		if len(f.Entries) > 0 {
			meta.Leaders[f.Interval] = f.Entries[0].Name
		}
		for _, e := range f.Entries {
			names[e.Name] = true
		}
	}
	meta.Entities = len(names)

	data, err := sonic.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "metadata.json"), data, 0644); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "frames.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"index", "interval", "rank", "name", "value"}); err != nil {
		return "", err
	}
	for _, f := range frames {
		for _, e := range f.Entries {
			row := []string{
				strconv.Itoa(f.Index),
				f.Interval,
				strconv.Itoa(e.Rank),
				e.Name,
				strconv.FormatFloat(e.Value, 'f', -1, 64),
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return runID, nil
}

// List returns stored runs, newest first. Unreadable runs are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := sonic.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}

// LoadFrames reads a run's snapshots back in playback order.
func (s *Store) LoadFrames(runID string) ([]race.Frame, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "frames.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = 5

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	var frames []race.Frame
	for i, rec := range records {
		if i == 0 {
			continue
		}
		index, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: index: %w", i, err)
		}
		rank, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: rank: %w", i, err)
		}
		value, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: value: %w", i, err)
		}

		if len(frames) == 0 || frames[len(frames)-1].Index != index {
			frames = append(frames, race.Frame{Index: index, Interval: rec[1]})
		}
		last := &frames[len(frames)-1]
		last.Entries = append(last.Entries, race.Entry{Name: rec[3], Value: value, Rank: rank})
	}
	return frames, nil
}

// Series returns name's value per frame, NaN where it was outside the top-N.
func Series(frames []race.Frame, name string) []float64 {
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = math.NaN()
		for _, e := range f.Entries {
			if e.Name == name {
				out[i] = e.Value
				break
			}
		}
	}
	return out
}
