package race

import (
	"math"
	"sort"

	"github.com/san-kum/barrace/internal/dataset"
)

// Entry is one ranked entity in a frame.
type Entry struct {
	Name  string
	Value float64
	Rank  int
}

// Frame is the top-N snapshot of one interval.
type Frame struct {
	Index    int
	Interval string
	Entries  []Entry
}

// Max returns the largest value in the frame, 0 when empty.
func (f Frame) Max() float64 {
	m := 0.0
	for i, e := range f.Entries {
		if i == 0 || e.Value > m {
			m = e.Value
		}
	}
	return m
}

// Names returns entry names in rank order.
func (f Frame) Names() []string {
	names := make([]string, len(f.Entries))
	for i, e := range f.Entries {
		names[i] = e.Name
	}
	return names
}

// TopN ranks records by their value for interval, descending. Equal values
// keep input order; NaN values cannot be drawn and are left out.
func TopN(records []dataset.Record, interval string, n int) []Entry {
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		v := r.Value(interval)
		if math.IsNaN(v) {
			continue
		}
		entries = append(entries, Entry{Name: r.Name, Value: v})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// NewFrame builds the snapshot for the index-th interval of ds.
func NewFrame(ds *dataset.Dataset, index, n int) Frame {
	interval := ds.Intervals[index]
	return Frame{
		Index:    index,
		Interval: interval,
		Entries:  TopN(ds.Records, interval, n),
	}
}
