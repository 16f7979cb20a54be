package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/archivio-hq/collection-notifier/pkg/message"
)

// Fanout dispatches a card to all configured sinks.
type Fanout struct {
	sinks []Sink
}

// NewFanout builds a dispatcher that fans a card out across sinks.
func NewFanout(sinks []Sink) *Fanout {
	cp := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s == nil {
			continue
		}
		cp = append(cp, s)
	}
	return &Fanout{sinks: cp}
}

// Send forwards the card to every registered sink. Any sink failure is
// reported; the caller aborts the run before persisting state.
func (f *Fanout) Send(ctx context.Context, card message.Card) error {
	if f == nil || len(f.sinks) == 0 {
		return fmt.Errorf("no sinks configured")
	}

	var errs []error
	for _, s := range f.sinks {
		if err := s.Send(ctx, card); err != nil {
			errs = append(errs, fmt.Errorf("%s sink[%s]: %w", s.Type(), s.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// Size returns the number of active sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}
