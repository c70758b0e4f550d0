package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultIDField    = "Country"
	DefaultDelimiter  = ';'
	DefaultDecimalSep = ','
)

// Record is one entity row: its identifier and a value per interval label.
type Record struct {
	Name   string
	Values map[string]float64
}

// Value returns the record's value for interval, NaN when absent.
func (r Record) Value(interval string) float64 {
	v, ok := r.Values[interval]
	if !ok {
		return math.NaN()
	}
	return v
}

// Dataset holds the records in input order and the playback order of
// interval labels.
type Dataset struct {
	Source    string
	IDField   string
	Records   []Record
	Intervals []string
}

// Options controls parsing.
type Options struct {
	IDField    string
	Delimiter  rune
	Mode       DecimalMode
	DecimalSep rune
	Strict     bool
}

// DefaultOptions returns the options for the reference dataset layout.
func DefaultOptions() Options {
	return Options{
		IDField:    DefaultIDField,
		Delimiter:  DefaultDelimiter,
		Mode:       DecimalLocale,
		DecimalSep: DefaultDecimalSep,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.IDField == "" {
		o.IDField = d.IDField
	}
	if o.Delimiter == 0 {
		o.Delimiter = d.Delimiter
	}
	if o.Mode == "" {
		o.Mode = d.Mode
	}
	if o.DecimalSep == 0 {
		o.DecimalSep = d.DecimalSep
	}
	return o
}

// Load fetches source and parses it into a Dataset.
func Load(ctx context.Context, f *Fetcher, source string, opts Options) (*Dataset, error) {
	raw, err := f.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	ds, err := Parse(bytes.NewReader(raw), opts)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	ds.Source = source
	return ds, nil
}

// Parse reads delimited text. The first row is the header; the identifier
// column is kept as text and every other column is coerced to a number.
func Parse(r io.Reader, opts Options) (*Dataset, error) {
	opts = opts.withDefaults()

	if opts.Mode == DecimalLegacy {
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(bytes.ReplaceAll(raw, []byte(","), []byte(".")))
	}

	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idCol := -1
	for i, h := range header {
		if h == opts.IDField {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoIDField, opts.IDField)
	}

	cols := make([]int, 0, len(header)-1)
	seenCol := make(map[string]bool, len(header))
	for i, h := range header {
		if i == idCol || seenCol[h] {
			continue
		}
		seenCol[h] = true
		cols = append(cols, i)
	}

	ds := &Dataset{IDField: opts.IDField}
	for _, c := range cols {
		ds.Intervals = append(ds.Intervals, header[c])
	}

	seen := make(map[string]bool)
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}

		rec := Record{Values: make(map[string]float64, len(cols))}
		if idCol < len(fields) {
			rec.Name = fields[idCol]
		}
		if seen[rec.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, rec.Name)
		}
		seen[rec.Name] = true

		for _, c := range cols {
			if c >= len(fields) {
				rec.Values[header[c]] = math.NaN()
				continue
			}
			v, ok := coerce(fields[c], opts)
			if !ok && opts.Strict {
				return nil, &ParseError{Row: row, Column: header[c], Text: fields[c]}
			}
			rec.Values[header[c]] = v
		}
		ds.Records = append(ds.Records, rec)
	}

	ds.Intervals = SortIntervals(ds.Intervals)
	return ds, nil
}

func coerce(s string, opts Options) (float64, bool) {
	if opts.Mode == DecimalLegacy {
		return coerceLegacy(s)
	}
	return ParseDecimal(s, opts.DecimalSep)
}

// SortIntervals returns labels ordered by the integer before the first
// '-'. Labels without a numeric prefix compare as zero; the sort is stable.
func SortIntervals(labels []string) []string {
	out := make([]string, len(labels))
	copy(out, labels)
	sort.SliceStable(out, func(i, j int) bool {
		return StartYear(out[i]) < StartYear(out[j])
	})
	return out
}

// StartYear parses the leading integer of an interval label, ignoring any
// trailing non-digit text before the first '-'.
func StartYear(label string) int {
	head, _, _ := strings.Cut(strings.TrimSpace(label), "-")
	end := 0
	for end < len(head) && head[end] >= '0' && head[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(head[:end])
	if err != nil {
		return 0
	}
	return n
}

// Names returns record identifiers in input order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.Records))
	for i, r := range d.Records {
		names[i] = r.Name
	}
	return names
}

// Lookup returns the record named name.
func (d *Dataset) Lookup(name string) (Record, bool) {
	for _, r := range d.Records {
		if r.Name == name {
			return r, true
		}
	}
	return Record{}, false
}

// Series returns a record's values in playback order.
func (d *Dataset) Series(name string) ([]float64, bool) {
	rec, ok := d.Lookup(name)
	if !ok {
		return nil, false
	}
	out := make([]float64, len(d.Intervals))
	for i, iv := range d.Intervals {
		out[i] = rec.Value(iv)
	}
	return out, true
}
