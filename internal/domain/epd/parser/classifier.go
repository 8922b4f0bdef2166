package parser

import (
	"log/slog"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
	"github.com/FACorreiaa/epd-parser/internal/domain/epd/extractor"
)

// Selection is the outcome of table classification.
type Selection struct {
	Primary extractor.Table
	// Recalculations concatenates the rows of every recalculation table.
	Recalculations extractor.Table
	// Degraded is set when no table looked like a service table and the
	// first table was used instead.
	Degraded bool
}

// Classifier decides which extracted tables carry charges.
type Classifier struct {
	vocab      *Vocabulary
	minColumns int
	logger     *slog.Logger
}

// NewClassifier creates a classifier. A service table needs at least
// minColumns cells in one of its rows.
func NewClassifier(vocab *Vocabulary, minColumns int, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{vocab: vocab, minColumns: minColumns, logger: logger}
}

// IsServiceTable reports whether t is the primary charges table: a row
// wide enough and every service keyword somewhere in the table.
func (c *Classifier) IsServiceTable(t extractor.Table) bool {
	return t.MaxColumns() >= c.minColumns && c.vocab.HasAllServiceKeywords(t.Text())
}

// IsRecalculationTable reports whether t lists recalculations. Tables
// mentioning any service keyword never qualify.
func (c *Classifier) IsRecalculationTable(t extractor.Table) bool {
	text := t.Text()
	if !c.vocab.HasRecalculationMarker(text) {
		return false
	}
	return !c.IsServiceTable(t) && !c.vocab.HasAnyServiceKeyword(text)
}

// Select picks the primary table and gathers recalculation tables.
func (c *Classifier) Select(tables []extractor.Table) (Selection, error) {
	if len(tables) == 0 {
		return Selection{}, epd.ErrNoTables
	}

	var sel Selection
	found := false
	for i, t := range tables {
		switch {
		case !found && c.IsServiceTable(t):
			sel.Primary = t
			found = true
			c.logger.Debug("service table selected", slog.Int("table", i), slog.Int("rows", len(t)))
		case c.IsRecalculationTable(t):
			sel.Recalculations = append(sel.Recalculations, t...)
		}
	}

	if !found {
		sel.Primary = tables[0]
		sel.Degraded = true
		c.logger.Warn("no service table found, using first table",
			slog.Int("tables", len(tables)),
			slog.Int("rows", len(tables[0])),
		)
	}
	return sel, nil
}
