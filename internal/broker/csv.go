package broker

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/yourusername/signal-lab/internal/models"
)

const dealTimeLayout = "2006-01-02 15:04:05"

type csvDeal struct {
	DealID     int64   `csv:"deal_id"`
	Time       string  `csv:"time"`
	Side       string  `csv:"side"`
	PositionID int64   `csv:"position_id"`
	StrategyID int64   `csv:"magic"`
	Symbol     string  `csv:"symbol"`
	Price      float64 `csv:"price"`
	Volume     float64 `csv:"volume"`
	Profit     float64 `csv:"profit"`
	Comment    string  `csv:"comment"`
}

// CSVSession replays an exported deal history file. Times are read as UTC,
// either RFC3339 or "2006-01-02 15:04:05".
type CSVSession struct {
	path  string
	deals []models.Deal
	open  bool
}

// NewCSVSession creates a session over a deal history file
func NewCSVSession(path string) *CSVSession {
	return &CSVSession{path: path}
}

// Venue names the session kind
func (s *CSVSession) Venue() string { return "csv" }

// Connect loads the file
func (s *CSVSession) Connect(ctx context.Context) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open deals file: %w", err)
	}
	defer f.Close()

	var rows []csvDeal
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return fmt.Errorf("failed to parse %s: %w", s.path, err)
	}

	deals := make([]models.Deal, 0, len(rows))
	for i, r := range rows {
		d, err := r.toDeal()
		if err != nil {
			return fmt.Errorf("%s row %d: %w", s.path, i+2, err)
		}
		deals = append(deals, d)
	}
	s.deals = deals
	s.open = true
	return nil
}

// FetchDeals filters the loaded deals by pattern and time range
func (s *CSVSession) FetchDeals(ctx context.Context, symbolPattern string, start, end time.Time) ([]models.Deal, error) {
	if !s.open {
		return nil, models.ErrSessionClosed
	}
	return filterDeals(s.deals, symbolPattern, start, end), nil
}

// Close releases the loaded deals
func (s *CSVSession) Close(ctx context.Context) error {
	s.deals = nil
	s.open = false
	return nil
}

// WriteDealsCSV exports deals in the format CSVSession reads
func WriteDealsCSV(path string, deals []models.Deal) error {
	rows := make([]csvDeal, len(deals))
	for i, d := range deals {
		rows[i] = csvDeal{
			DealID:     d.DealID,
			Time:       d.Time.UTC().Format(dealTimeLayout),
			Side:       string(d.Side),
			PositionID: d.PositionID,
			StrategyID: d.StrategyID,
			Symbol:     d.Symbol,
			Price:      d.Price,
			Volume:     d.Volume,
			Profit:     d.Profit,
			Comment:    d.Comment,
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (r csvDeal) toDeal() (models.Deal, error) {
	t, err := parseDealTime(r.Time)
	if err != nil {
		return models.Deal{}, err
	}
	side := models.DealSide(strings.ToLower(strings.TrimSpace(r.Side)))
	if side != models.DealBuy && side != models.DealSell {
		return models.Deal{}, fmt.Errorf("%w: side %q", models.ErrInvalidDeal, r.Side)
	}
	return models.Deal{
		DealID:     r.DealID,
		Time:       t,
		Side:       side,
		PositionID: r.PositionID,
		StrategyID: r.StrategyID,
		Symbol:     r.Symbol,
		Price:      r.Price,
		Volume:     r.Volume,
		Profit:     r.Profit,
		Comment:    r.Comment,
	}, nil
}

func parseDealTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dealTimeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q", models.ErrInvalidDeal, v)
	}
	return t, nil
}
