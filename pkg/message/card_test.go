package message

import (
	"strings"
	"testing"
	"time"

	"github.com/archivio-hq/collection-notifier/internal/domain"
)

const discoveryBase = "https://discovery.example.org"

func TestDeepLinkDeterministic(t *testing.T) {
	uri := "/repositories/2/resources/1"
	first := DeepLink(discoveryBase, uri)
	second := DeepLink(discoveryBase, uri)
	if first != second {
		t.Fatalf("deep link not stable: %s vs %s", first, second)
	}
	if !strings.HasPrefix(first, discoveryBase+"/collections/") {
		t.Fatalf("unexpected link shape: %s", first)
	}
	if id := strings.TrimPrefix(first, discoveryBase+"/collections/"); id == "" {
		t.Fatalf("empty identifier in %s", first)
	}
}

func TestDeepLinkDistinctURIs(t *testing.T) {
	a := DeepLink(discoveryBase, "/repositories/2/resources/1")
	b := DeepLink(discoveryBase, "/repositories/2/resources/2")
	if a == b {
		t.Fatalf("distinct uris produced the same link: %s", a)
	}
}

func TestFormatRecordDeterministic(t *testing.T) {
	rec := domain.Record{URI: "/repositories/2/resources/1", Title: "Papers of A"}
	first := FormatRecord(discoveryBase, rec)
	second := FormatRecord(discoveryBase, rec)
	if first != second {
		t.Fatalf("format not byte-identical: %s vs %s", first, second)
	}
	if !strings.HasPrefix(first, "[Papers of A](") || !strings.HasSuffix(first, ")") {
		t.Fatalf("unexpected line shape: %s", first)
	}
}

func TestRenderSectionEmptyUsesPlaceholder(t *testing.T) {
	if got := RenderSection(nil, NoNewCollectionsText); got != NoNewCollectionsText {
		t.Fatalf("RenderSection(nil) = %q", got)
	}
	if got := RenderSection([]string{}, NoUpdatedMapsText); got != NoUpdatedMapsText {
		t.Fatalf("RenderSection(empty) = %q", got)
	}
}

func TestRenderSectionJoinsLines(t *testing.T) {
	got := RenderSection([]string{"line one", "line two"}, NoNewCollectionsText)
	want := "line one   \nline two"
	if got != want {
		t.Fatalf("RenderSection = %q, want %q", got, want)
	}
}

func TestBuildCard(t *testing.T) {
	from := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC)
	collections := []domain.Record{{URI: "/repositories/2/resources/2", Title: "B"}}

	card := BuildCard(from, to, discoveryBase, collections, nil)

	if card.Type != "MessageCard" || card.Context != "https://schema.org/extensions" {
		t.Fatalf("unexpected envelope: %+v", card)
	}
	wantTitle := "New collections and updated arrangement maps from April 1, 2024 through April 30, 2024"
	if card.Title != wantTitle {
		t.Fatalf("title = %q, want %q", card.Title, wantTitle)
	}
	if len(card.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(card.Sections))
	}

	if card.Sections[0].Title != "## Newly Published Collections" {
		t.Fatalf("section 0 title = %q", card.Sections[0].Title)
	}
	if !strings.Contains(card.Sections[0].Text, "[B](") {
		t.Fatalf("collections section missing record line: %q", card.Sections[0].Text)
	}
	if card.Sections[1].Text != NoUpdatedMapsText {
		t.Fatalf("maps section = %q, want placeholder", card.Sections[1].Text)
	}
}

func TestBuildCardAllEmpty(t *testing.T) {
	from := time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)

	card := BuildCard(from, to, discoveryBase, nil, nil)

	if card.Sections[0].Text != NoNewCollectionsText {
		t.Fatalf("collections section = %q", card.Sections[0].Text)
	}
	if card.Sections[1].Text != NoUpdatedMapsText {
		t.Fatalf("maps section = %q", card.Sections[1].Text)
	}
}
