package epd

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreadablePDF is returned when the input is not a readable PDF.
	ErrUnreadablePDF = errors.New("file is not a readable PDF")

	// ErrNoPages is returned for a PDF without pages.
	ErrNoPages = errors.New("PDF has no pages")

	// ErrNoTables is returned when no tables could be extracted from the document.
	ErrNoTables = errors.New("no tables found in document")

	// ErrMissingAccountNumber is returned when the header has no account number.
	ErrMissingAccountNumber = errors.New("account number not found in document")

	// ErrUnsupportedStrategy is returned for an unknown strategy name.
	ErrUnsupportedStrategy = errors.New("unsupported parsing strategy")
)

// IsFatal reports whether err is one of the parse failures that reject a
// whole document.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnreadablePDF) ||
		errors.Is(err, ErrNoPages) ||
		errors.Is(err, ErrNoTables) ||
		errors.Is(err, ErrMissingAccountNumber)
}

// Error implements the error interface so warnings can be logged as errors.
func (w ParseWarning) Error() string {
	if w.Column != "" {
		return fmt.Sprintf("row %d, column %s: %s", w.Row, w.Column, w.Message)
	}
	return fmt.Sprintf("row %d: %s", w.Row, w.Message)
}
