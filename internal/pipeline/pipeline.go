// Package pipeline runs one notifier pass: window, load seen set, fetch,
// diff, render, deliver, persist. Strictly sequential; the first failure
// aborts the run before the seen set is overwritten.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/archivio-hq/collection-notifier/internal/domain"
	"github.com/archivio-hq/collection-notifier/internal/logger"
	"github.com/archivio-hq/collection-notifier/internal/storage"
	"github.com/archivio-hq/collection-notifier/internal/window"
	"github.com/archivio-hq/collection-notifier/pkg/message"
)

// ResourceFetcher lists all currently published archival resources.
type ResourceFetcher interface {
	PublishedResources(ctx context.Context) ([]domain.Record, error)
}

// MapFetcher lists arrangement maps modified since a timestamp, URIs resolved.
type MapFetcher interface {
	UpdatedMaps(ctx context.Context, since time.Time) ([]domain.ArrangementMap, error)
}

// CardSender delivers the rendered card to the configured sinks.
type CardSender interface {
	Send(ctx context.Context, card message.Card) error
}

// Service wires one run of the notifier.
type Service struct {
	store            storage.Store
	resources        ResourceFetcher
	maps             MapFetcher
	sender           CardSender
	discoveryBaseURL string
	now              func() time.Time
}

// NewService builds the pipeline from its collaborators.
func NewService(store storage.Store, resources ResourceFetcher, maps MapFetcher, sender CardSender, discoveryBaseURL string) *Service {
	return &Service{
		store:            store,
		resources:        resources,
		maps:             maps,
		sender:           sender,
		discoveryBaseURL: discoveryBaseURL,
		now:              time.Now,
	}
}

// Run executes one notifier pass.
//
// Persistence policy: the full current result set replaces the stored seen set
// (not a union, not a delta), so the store always mirrors what is currently
// published and stays bounded. The webhook send and the save are not
// transactional; a crash between them re-reports once on the next run.
func (s *Service) Run(ctx context.Context) error {
	from, to := window.Previous(s.now())
	logger.InfoObj("run started", "run_window", map[string]any{
		"from": from.Format(time.DateOnly),
		"to":   to.Format(time.DateOnly),
	})

	seen, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("load seen set: %w", err)
		}
		// First ever run: nothing reported yet.
		logger.InfoObj("no seen set found, starting empty", "seen_key_missing", true)
		seen = nil
	}

	current, err := s.resources.PublishedResources(ctx)
	if err != nil {
		return fmt.Errorf("fetch published resources: %w", err)
	}

	maps, err := s.maps.UpdatedMaps(ctx, from)
	if err != nil {
		return fmt.Errorf("fetch updated maps: %w", err)
	}

	novel := diffByURI(current, seen)
	mapRecords := make([]domain.Record, 0, len(maps))
	for _, m := range maps {
		mapRecords = append(mapRecords, m.Record())
	}

	logger.InfoObj("run diffed", "run_counts", map[string]any{
		"published_total": len(current),
		"previously_seen": len(seen),
		"new_collections": len(novel),
		"updated_maps":    len(mapRecords),
	})

	card := message.BuildCard(from, to, s.discoveryBaseURL, novel, mapRecords)
	if err := s.sender.Send(ctx, card); err != nil {
		return fmt.Errorf("deliver card: %w", err)
	}

	if err := s.store.Save(ctx, current); err != nil {
		return fmt.Errorf("save seen set: %w", err)
	}

	logger.InfoObj("run completed", "run_counts", map[string]any{
		"new_collections": len(novel),
		"seen_set_size":   len(current),
	})
	return nil
}

// diffByURI returns the records in current whose URI is absent from seen,
// preserving current's order. Identity is the URI alone so a title edit on an
// already-reported record does not re-report it.
func diffByURI(current, seen []domain.Record) []domain.Record {
	seenURIs := make(map[string]struct{}, len(seen))
	for _, rec := range seen {
		seenURIs[rec.URI] = struct{}{}
	}

	novel := make([]domain.Record, 0, len(current))
	for _, rec := range current {
		if _, ok := seenURIs[rec.URI]; !ok {
			novel = append(novel, rec)
		}
	}
	return novel
}
