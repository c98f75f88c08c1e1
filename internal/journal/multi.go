package journal

import (
	"context"
	"errors"
)

// MultiJournal fans an entry out to every sink. A failing sink does not stop
// the others; all errors are joined.
type MultiJournal struct {
	sinks []Sink
}

// NewMultiJournal skips nil sinks
func NewMultiJournal(sinks ...Sink) *MultiJournal {
	m := &MultiJournal{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Append writes to all sinks
func (m *MultiJournal) Append(ctx context.Context, entry Entry) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Append(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
