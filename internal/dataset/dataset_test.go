package dataset

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "Country;1995-2000;1990-1995\n" +
	"Sweden;3,5;1 234,5\n" +
	"Norway;7;2,25\n" +
	"Chad;;x\n"

func TestParseLocale(t *testing.T) {
	ds, err := Parse(strings.NewReader(sample), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"1990-1995", "1995-2000"}, ds.Intervals)
	assert.Equal(t, []string{"Sweden", "Norway", "Chad"}, ds.Names())

	sweden, ok := ds.Lookup("Sweden")
	require.True(t, ok)
	assert.Equal(t, 1234.5, sweden.Value("1990-1995"))
	assert.Equal(t, 3.5, sweden.Value("1995-2000"))

	chad, _ := ds.Lookup("Chad")
	assert.True(t, math.IsNaN(chad.Value("1990-1995")))
	assert.True(t, math.IsNaN(chad.Value("1995-2000")))
}

func TestParseIdentifierNeverCoerced(t *testing.T) {
	in := "Country;2000-2005\n1234;5\n"
	ds, err := Parse(strings.NewReader(in), DefaultOptions())
	require.NoError(t, err)

	rec := ds.Records[0]
	assert.Equal(t, "1234", rec.Name)
	_, isValue := rec.Values["Country"]
	assert.False(t, isValue)
	assert.Equal(t, 5.0, rec.Value("2000-2005"))
}

func TestDecimalScenario(t *testing.T) {
	in := "Country;1990-1995;1995-2000\nSweden;1.5,2;3,0\n"

	for _, mode := range []DecimalMode{DecimalLocale, DecimalLegacy} {
		t.Run(string(mode), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Mode = mode
			ds, err := Parse(strings.NewReader(in), opts)
			require.NoError(t, err)

			rec := ds.Records[0]
			assert.Equal(t, "Sweden", rec.Name)
			assert.True(t, math.IsNaN(rec.Value("1990-1995")))
			assert.Equal(t, 3.0, rec.Value("1995-2000"))
		})
	}
}

func TestLegacyCorruptsText(t *testing.T) {
	in := "Country;2000-2005\n\"Korea, Rep.\";1,5\n"

	legacy := DefaultOptions()
	legacy.Mode = DecimalLegacy
	ds, err := Parse(strings.NewReader(in), legacy)
	require.NoError(t, err)
	assert.Equal(t, "Korea. Rep.", ds.Records[0].Name)
	assert.Equal(t, 1.5, ds.Records[0].Value("2000-2005"))

	ds, err = Parse(strings.NewReader(in), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Korea, Rep.", ds.Records[0].Name)
	assert.Equal(t, 1.5, ds.Records[0].Value("2000-2005"))
}

func TestLegacyEmptyFieldIsZero(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = DecimalLegacy
	ds, err := Parse(strings.NewReader("Country;2000-2005\nChad;\n"), opts)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ds.Records[0].Value("2000-2005"))
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		sep  rune
		want float64
		ok   bool
	}{
		{"3,5", ',', 3.5, true},
		{"-3,5", ',', -3.5, true},
		{" 42 ", ',', 42, true},
		{",5", ',', 0.5, true},
		{"1.234,5", ',', 1234.5, true},
		{"12.345.678", ',', 12345678, true},
		{"1 234", ',', 1234, true},
		{"1.5,2", ',', 0, false},
		{"1234.567", ',', 0, false},
		{"3,", ',', 0, false},
		{"1,2,3", ',', 0, false},
		{"abc", ',', 0, false},
		{"", ',', 0, false},
		{"-", ',', 0, false},
		{"1,234.5", '.', 1234.5, true},
		{"3,5", '.', 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseDecimal(tt.in, tt.sep)
		if ok != tt.ok {
			t.Errorf("ParseDecimal(%q, %q): ok=%v, want %v", tt.in, tt.sep, ok, tt.ok)
			continue
		}
		if !ok {
			assert.True(t, math.IsNaN(got), "ParseDecimal(%q) should be NaN", tt.in)
			continue
		}
		assert.InDelta(t, tt.want, got, 1e-9, "ParseDecimal(%q)", tt.in)
	}
}

func TestParseStrict(t *testing.T) {
	opts := DefaultOptions()
	opts.Strict = true
	_, err := Parse(strings.NewReader(sample), opts)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.True(t, errors.Is(err, ErrNotNumeric))
	assert.Equal(t, 3, perr.Row)
	assert.Equal(t, "1995-2000", perr.Column)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader(""), DefaultOptions())
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Parse(strings.NewReader("Name;2000-2005\nA;1\n"), DefaultOptions())
	assert.ErrorIs(t, err, ErrNoIDField)

	_, err = Parse(strings.NewReader("Country;2000-2005\nA;1\nA;2\n"), DefaultOptions())
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestParseRaggedRow(t *testing.T) {
	ds, err := Parse(strings.NewReader("Country;1990-1995;1995-2000\nPeru;4\n"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 4.0, ds.Records[0].Value("1990-1995"))
	assert.True(t, math.IsNaN(ds.Records[0].Value("1995-2000")))
}

func TestSortIntervals(t *testing.T) {
	in := []string{"2010-2015", "1950-1955", "2000-2005", "1990-1995"}
	got := SortIntervals(in)
	assert.Equal(t, []string{"1950-1955", "1990-1995", "2000-2005", "2010-2015"}, got)
	assert.Equal(t, "2010-2015", in[0], "input must not be reordered")

	for i := 1; i < len(got); i++ {
		assert.Less(t, StartYear(got[i-1]), StartYear(got[i]))
	}
}

func TestStartYear(t *testing.T) {
	assert.Equal(t, 1990, StartYear("1990-1995"))
	assert.Equal(t, 2020, StartYear("2020"))
	assert.Equal(t, 1990, StartYear("1990s-2000s"))
	assert.Equal(t, 0, StartYear("total"))
}

func TestSeries(t *testing.T) {
	ds, err := Parse(strings.NewReader(sample), DefaultOptions())
	require.NoError(t, err)

	series, ok := ds.Series("Norway")
	require.True(t, ok)
	assert.Equal(t, []float64{2.25, 7}, series)

	_, ok = ds.Series("Atlantis")
	assert.False(t, ok)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	ds, err := Load(context.Background(), DefaultFetcher(), path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, path, ds.Source)
	assert.Len(t, ds.Records, 3)
}

func TestLoadHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dataset.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(sample))
	}))
	defer srv.Close()

	ds, err := Load(context.Background(), DefaultFetcher(), srv.URL+"/dataset.csv", DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, ds.Intervals, 2)

	_, err = Load(context.Background(), DefaultFetcher(), srv.URL+"/missing.csv", DefaultOptions())
	assert.ErrorIs(t, err, ErrFetch)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), DefaultFetcher(), filepath.Join(t.TempDir(), "nope.csv"), DefaultOptions())

	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestFetcherRejectsOversizedInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	limit := int64(len(sample))
	_, err := Load(context.Background(), NewFetcher(time.Second, DefaultUserAgent, limit), path, DefaultOptions())
	require.NoError(t, err)

	_, err = Load(context.Background(), NewFetcher(time.Second, DefaultUserAgent, limit-1), path, DefaultOptions())
	assert.ErrorIs(t, err, ErrFetch)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sample))
	}))
	defer srv.Close()
	_, err = Load(context.Background(), NewFetcher(time.Second, DefaultUserAgent, limit-1), srv.URL, DefaultOptions())
	assert.ErrorIs(t, err, ErrFetch)
}

func TestFetcherCachesRemoteBodies(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(sample))
	}))
	defer srv.Close()

	f := DefaultFetcher().WithCache(time.Minute).WithRateLimit(100)
	for i := 0; i < 3; i++ {
		body, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, sample, string(body))
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetcherRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sample))
	}))
	defer srv.Close()

	f := DefaultFetcher().WithRateLimit(0.001)
	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestWatcherSignalsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	w, err := NewWatcher(path, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.csv"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(path, []byte(sample+"Peru;1;2\n"), 0644))

	select {
	case <-w.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("no change signalled")
	}
}
