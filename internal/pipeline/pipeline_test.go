package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/archivio-hq/collection-notifier/internal/domain"
	"github.com/archivio-hq/collection-notifier/internal/storage"
	"github.com/archivio-hq/collection-notifier/pkg/message"
)

// fakeStore keeps the seen set in memory and records saves.
type fakeStore struct {
	records []domain.Record
	saved   [][]domain.Record
	loadErr error
	saveErr error
}

func (f *fakeStore) Load(_ context.Context) ([]domain.Record, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.records, nil
}

func (f *fakeStore) Save(_ context.Context, records []domain.Record) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, records)
	f.records = records
	return nil
}

func (f *fakeStore) Close() error { return nil }

type fakeResources struct {
	records []domain.Record
	err     error
}

func (f *fakeResources) PublishedResources(_ context.Context) ([]domain.Record, error) {
	return f.records, f.err
}

type fakeMaps struct {
	maps []domain.ArrangementMap
	err  error
}

func (f *fakeMaps) UpdatedMaps(_ context.Context, _ time.Time) ([]domain.ArrangementMap, error) {
	return f.maps, f.err
}

type fakeSender struct {
	cards []message.Card
	err   error
}

func (f *fakeSender) Send(_ context.Context, card message.Card) error {
	f.cards = append(f.cards, card)
	return f.err
}

func newTestService(store *fakeStore, resources *fakeResources, maps *fakeMaps, sender *fakeSender) *Service {
	svc := NewService(store, resources, maps, sender, "https://discovery.example.org")
	svc.now = func() time.Time {
		return time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestRunReportsOnlyNovelRecords(t *testing.T) {
	recordA := domain.Record{URI: "/repositories/2/resources/1", Title: "A"}
	recordB := domain.Record{URI: "/repositories/2/resources/2", Title: "B"}

	store := &fakeStore{records: []domain.Record{recordA}}
	resources := &fakeResources{records: []domain.Record{recordA, recordB}}
	sender := &fakeSender{}
	svc := newTestService(store, resources, &fakeMaps{}, sender)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sender.cards) != 1 {
		t.Fatalf("expected one card, got %d", len(sender.cards))
	}
	card := sender.cards[0]
	if !strings.Contains(card.Title, "April 1, 2024 through April 30, 2024") {
		t.Fatalf("card window wrong: %q", card.Title)
	}

	collections := card.Sections[0].Text
	if !strings.Contains(collections, "[B](") {
		t.Fatalf("collections section missing B: %q", collections)
	}
	if strings.Contains(collections, "[A](") {
		t.Fatalf("already-seen record A re-reported: %q", collections)
	}
	if card.Sections[1].Text != message.NoUpdatedMapsText {
		t.Fatalf("maps section = %q, want placeholder", card.Sections[1].Text)
	}

	// Full-replace policy: the stored set is the whole current result set.
	if len(store.saved) != 1 {
		t.Fatalf("expected one save, got %d", len(store.saved))
	}
	if diff := cmp.Diff([]domain.Record{recordA, recordB}, store.saved[0]); diff != "" {
		t.Fatalf("saved seen set mismatch (-want +got):\n%s", diff)
	}
}

func TestRunFirstRunTreatsMissingSeenSetAsEmpty(t *testing.T) {
	recordA := domain.Record{URI: "/repositories/2/resources/1", Title: "A"}

	store := &fakeStore{loadErr: storage.ErrNotFound}
	resources := &fakeResources{records: []domain.Record{recordA}}
	sender := &fakeSender{}
	svc := newTestService(store, resources, &fakeMaps{}, sender)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(sender.cards[0].Sections[0].Text, "[A](") {
		t.Fatalf("first run should report everything: %q", sender.cards[0].Sections[0].Text)
	}
}

func TestRunOtherLoadErrorAborts(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("s3 down")}
	sender := &fakeSender{}
	svc := newTestService(store, &fakeResources{}, &fakeMaps{}, sender)

	if err := svc.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if len(sender.cards) != 0 {
		t.Fatalf("nothing should be sent when load fails")
	}
}

func TestRunFetchFailureAbortsBeforeSendAndSave(t *testing.T) {
	store := &fakeStore{records: []domain.Record{}}
	resources := &fakeResources{err: domain.ErrUpstreamUnavailable}
	sender := &fakeSender{}
	svc := newTestService(store, resources, &fakeMaps{}, sender)

	err := svc.Run(context.Background())
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if len(sender.cards) != 0 {
		t.Fatalf("card sent despite fetch failure")
	}
	if len(store.saved) != 0 {
		t.Fatalf("seen set overwritten despite fetch failure")
	}
}

func TestRunMapFetchFailureAborts(t *testing.T) {
	store := &fakeStore{}
	maps := &fakeMaps{err: domain.ErrUpstreamUnavailable}
	sender := &fakeSender{}
	svc := newTestService(store, &fakeResources{}, maps, sender)

	if err := svc.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if len(store.saved) != 0 {
		t.Fatalf("seen set overwritten despite map fetch failure")
	}
}

func TestRunSendFailureLeavesSeenSetUntouched(t *testing.T) {
	recordA := domain.Record{URI: "/a", Title: "A"}
	store := &fakeStore{}
	resources := &fakeResources{records: []domain.Record{recordA}}
	sender := &fakeSender{err: errors.New("webhook down")}
	svc := newTestService(store, resources, &fakeMaps{}, sender)

	if err := svc.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if len(store.saved) != 0 {
		t.Fatalf("seen set overwritten despite delivery failure")
	}
}

func TestRunIncludesResolvedMaps(t *testing.T) {
	store := &fakeStore{}
	maps := &fakeMaps{maps: []domain.ArrangementMap{
		{Ref: "/maps/1", Title: "Map One", URI: "/repositories/2/resources/10"},
	}}
	sender := &fakeSender{}
	svc := newTestService(store, &fakeResources{}, maps, sender)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	card := sender.cards[0]
	if !strings.Contains(card.Sections[1].Text, "[Map One](") {
		t.Fatalf("maps section missing resolved map: %q", card.Sections[1].Text)
	}
	if card.Sections[0].Text != message.NoNewCollectionsText {
		t.Fatalf("collections section = %q, want placeholder", card.Sections[0].Text)
	}
}

func TestDiffByURI(t *testing.T) {
	x := []domain.Record{
		{URI: "/a", Title: "A"},
		{URI: "/b", Title: "B"},
		{URI: "/c", Title: "C"},
	}

	if got := diffByURI(x, x); len(got) != 0 {
		t.Fatalf("diff(X, X) = %v, want empty", got)
	}
	if diff := cmp.Diff(x, diffByURI(x, nil)); diff != "" {
		t.Fatalf("diff(X, nil) mismatch (-want +got):\n%s", diff)
	}

	seen := []domain.Record{{URI: "/b", Title: "B"}}
	got := diffByURI(x, seen)
	want := []domain.Record{{URI: "/a", Title: "A"}, {URI: "/c", Title: "C"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("diff mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffByURIIgnoresTitleEdits(t *testing.T) {
	current := []domain.Record{{URI: "/a", Title: "A (revised)"}}
	seen := []domain.Record{{URI: "/a", Title: "A"}}

	if got := diffByURI(current, seen); len(got) != 0 {
		t.Fatalf("title edit re-reported as new: %v", got)
	}
}
