package datasource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/yourusername/signal-lab/internal/models"
)

const csvSourceName = "csv"

var barTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02",
}

// BarTime is a CSV timestamp in exchange-local wall clock time
type BarTime struct {
	time.Time
}

// UnmarshalCSV parses any of the accepted bar timestamp layouts
func (b *BarTime) UnmarshalCSV(value string) error {
	value = strings.TrimSpace(value)
	for _, layout := range barTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			b.Time = t
			return nil
		}
	}
	return fmt.Errorf("unrecognized time %q", value)
}

// MarshalCSV writes the timestamp without zone information
func (b BarTime) MarshalCSV() (string, error) {
	return b.Time.Format("2006-01-02 15:04:05"), nil
}

type csvBar struct {
	Time   BarTime `csv:"time"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

// CSVSource reads <dir>/<SYMBOL>_<timeframe>.csv files
type CSVSource struct {
	dir string
}

// NewCSVSource creates a CSV bar source rooted at dir
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

// Name returns the name of the data source
func (s *CSVSource) Name() string {
	return csvSourceName
}

// Path returns the file a symbol and timeframe are read from
func (s *CSVSource) Path(symbol, timeframe string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", symbol, strings.ToLower(timeframe)))
}

// Bars loads, sorts and range-filters the bars of a symbol
func (s *CSVSource) Bars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.Path(symbol, timeframe)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewDataSourceError(csvSourceName, ErrCodeNotFound, path, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var rows []csvBar
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, NewDataSourceError(csvSourceName, ErrCodeInvalidData, path, err)
	}

	bars := make([]models.Bar, 0, len(rows))
	for _, r := range rows {
		if r.Time.Before(start) || r.Time.After(end) {
			continue
		}
		bars = append(bars, models.Bar{
			Time:   r.Time.Time,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	bars = dedupe(bars)
	if len(bars) == 0 {
		return nil, NewDataSourceError(csvSourceName, ErrCodeEmpty, path, ErrEmpty)
	}
	return bars, nil
}

// WriteBars stores bars in the layout CSVSource reads
func WriteBars(path string, bars []models.Bar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	rows := make([]csvBar, len(bars))
	for i, b := range bars {
		rows[i] = csvBar{Time: BarTime{b.Time}, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(&rows, f)
}

// dedupe keeps the last bar for every repeated timestamp of a sorted slice
func dedupe(bars []models.Bar) []models.Bar {
	if len(bars) < 2 {
		return bars
	}
	out := bars[:1]
	for _, b := range bars[1:] {
		if b.Time.Equal(out[len(out)-1].Time) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
