// Package broker fetches executed deals from a trading venue.
package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/signal-lab/internal/config"
	"github.com/yourusername/signal-lab/internal/logger"
	"github.com/yourusername/signal-lab/internal/models"
)

// DealFetcher returns the deals of every symbol matching symbolPattern
// executed in [start, end).
type DealFetcher interface {
	FetchDeals(ctx context.Context, symbolPattern string, start, end time.Time) ([]models.Deal, error)
}

// Session is an exclusive venue connection
type Session interface {
	DealFetcher
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	Venue() string
}

// WithSession connects, runs fn with the session and always closes it. A
// connect failure is returned as *models.UpstreamUnavailableError.
func WithSession(ctx context.Context, session Session, audit *logger.AuditLogger, fn func(DealFetcher) error) (err error) {
	if err := session.Connect(ctx); err != nil {
		audit.LogSessionClosed(session.Venue(), err)
		return &models.UpstreamUnavailableError{Component: "broker", Key: session.Venue(), Err: err}
	}
	account := ""
	if a, ok := session.(interface{ Account() string }); ok {
		account = a.Account()
	}
	audit.LogSessionOpened(session.Venue(), account)

	defer func() {
		// closing must not depend on a cancelled run context
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		closeErr := session.Close(closeCtx)
		audit.LogSessionClosed(session.Venue(), closeErr)
		if closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close %s session: %w", session.Venue(), closeErr))
		}
	}()

	return fn(session)
}

// NewSession builds the session selected by the broker configuration
func NewSession(cfg config.BrokerConfig, log *logrus.Logger) (Session, error) {
	switch cfg.Venue {
	case "rest":
		return NewRESTSession(cfg, NewHTTPClient(HTTPClientConfigFrom(cfg), log)), nil
	case "csv":
		return NewCSVSession(cfg.DealsFile), nil
	default:
		return nil, fmt.Errorf("unknown broker venue %q", cfg.Venue)
	}
}

func filterDeals(deals []models.Deal, symbolPattern string, start, end time.Time) []models.Deal {
	pattern := ParseSymbolPattern(symbolPattern)
	out := make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		if !pattern.Match(d.Symbol) {
			continue
		}
		if d.Time.Before(start) || !d.Time.Before(end) {
			continue
		}
		out = append(out, d)
	}
	return out
}
