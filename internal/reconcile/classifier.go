// Package reconcile rebuilds realized round-trip trades from raw broker deals
// and accumulates them into a per-strategy equity series.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/yourusername/signal-lab/internal/models"
)

// ClassificationMode selects how deals are split into entries and exits
type ClassificationMode string

const (
	ModeCommentTag  ClassificationMode = "comment_tag"
	ModeStrategyTag ClassificationMode = "strategy_tag"
)

// DefaultEntryMarker is the comment substring the order router stamps on entries
const DefaultEntryMarker = "patt"

// Role is the classification of a single deal
type Role int

const (
	RoleIgnore Role = iota
	RoleEntry
	RoleExit
)

// Classifier decides the role of a deal. Implementations are configured once per run.
type Classifier interface {
	Classify(d models.Deal) Role
	Mode() ClassificationMode
}

// CommentTagClassifier treats deals whose comment contains Marker as entries
// and every other deal as an exit.
type CommentTagClassifier struct {
	Marker string
}

func (c CommentTagClassifier) Mode() ClassificationMode { return ModeCommentTag }

func (c CommentTagClassifier) Classify(d models.Deal) Role {
	if strings.Contains(d.Comment, c.Marker) {
		return RoleEntry
	}
	return RoleExit
}

// StrategyTagClassifier treats deals tagged with StrategyID as entries and deals
// tagged with NoStrategyID as exits. Anything else belongs to another strategy.
type StrategyTagClassifier struct {
	StrategyID   int64
	NoStrategyID int64
}

func (c StrategyTagClassifier) Mode() ClassificationMode { return ModeStrategyTag }

func (c StrategyTagClassifier) Classify(d models.Deal) Role {
	switch {
	case c.StrategyID != c.NoStrategyID && d.StrategyID == c.StrategyID:
		return RoleEntry
	case d.StrategyID == c.NoStrategyID:
		return RoleExit
	default:
		return RoleIgnore
	}
}

// NewClassifier builds the classifier for mode. strategyID is only used in
// strategy_tag mode, where it must be non-zero.
func NewClassifier(mode string, marker string, strategyID int64) (Classifier, error) {
	switch ClassificationMode(mode) {
	case ModeCommentTag, "":
		if marker == "" {
			marker = DefaultEntryMarker
		}
		return CommentTagClassifier{Marker: marker}, nil
	case ModeStrategyTag:
		if strategyID == 0 {
			return nil, &models.ConfigurationError{Source: "reconcile", Field: "magic", Err: fmt.Errorf("strategy_tag mode needs a non-zero strategy id")}
		}
		return StrategyTagClassifier{StrategyID: strategyID}, nil
	default:
		return nil, &models.ConfigurationError{Source: "reconcile", Field: "classification_mode", Err: fmt.Errorf("unknown mode %q", mode)}
	}
}

// Classify splits deals into entries and exits, preserving input order
func Classify(c Classifier, deals []models.Deal) (entries, exits []models.Deal, ignored int) {
	for _, d := range deals {
		switch c.Classify(d) {
		case RoleEntry:
			entries = append(entries, d)
		case RoleExit:
			exits = append(exits, d)
		default:
			ignored++
		}
	}
	return entries, exits, ignored
}
