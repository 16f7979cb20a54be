package message

// Package message renders notification cards for the chat webhook. Exactly one
// envelope shape is supported: the schema.org/extensions MessageCard.

import (
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/archivio-hq/collection-notifier/internal/domain"
)

const (
	cardContext = "https://schema.org/extensions"
	cardType    = "MessageCard"

	dateFormat = "January 2, 2006"

	// Markdown lines within a section are joined with trailing spaces so the
	// chat client renders them as separate lines.
	lineSeparator = "   \n"

	// NoNewCollectionsText is the placeholder shown when no collections were
	// published in the window.
	NoNewCollectionsText = "No new collections published during this period."

	// NoUpdatedMapsText is the placeholder shown when no maps were updated in
	// the window.
	NoUpdatedMapsText = "No updated maps during this period."
)

// Card is the webhook payload envelope.
type Card struct {
	Context  string    `json:"@context"`
	Type     string    `json:"type"`
	Title    string    `json:"title"`
	Summary  string    `json:"summary"`
	Sections []Section `json:"sections"`
}

// Section is one content block of a Card.
type Section struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// DeepLink builds the public discovery link for a record URI. The short
// identifier is a name-based UUID over the URI, so the same URI always yields
// the same link and matches identifiers computed independently by the
// discovery front-end.
func DeepLink(discoveryBaseURL, uri string) string {
	return fmt.Sprintf("%s/collections/%s",
		strings.TrimRight(discoveryBaseURL, "/"), shortuuid.NewWithNamespace(uri))
}

// FormatRecord renders one record as a markdown link line.
func FormatRecord(discoveryBaseURL string, rec domain.Record) string {
	return fmt.Sprintf("[%s](%s)", rec.Title, DeepLink(discoveryBaseURL, rec.URI))
}

// RenderSection joins formatted lines, or returns the placeholder when there
// are none. An empty list never produces an empty block.
func RenderSection(lines []string, placeholder string) string {
	if len(lines) == 0 {
		return placeholder
	}
	return strings.Join(lines, lineSeparator)
}

// BuildCard assembles the notification card for a reporting window.
func BuildCard(from, to time.Time, discoveryBaseURL string, collections, maps []domain.Record) Card {
	collectionLines := make([]string, 0, len(collections))
	for _, rec := range collections {
		collectionLines = append(collectionLines, FormatRecord(discoveryBaseURL, rec))
	}
	mapLines := make([]string, 0, len(maps))
	for _, rec := range maps {
		mapLines = append(mapLines, FormatRecord(discoveryBaseURL, rec))
	}

	return Card{
		Context: cardContext,
		Type:    cardType,
		Title: fmt.Sprintf("New collections and updated arrangement maps from %s through %s",
			from.Format(dateFormat), to.Format(dateFormat)),
		Summary: "The following collections were recently updated or created.",
		Sections: []Section{
			{
				Title: "## Newly Published Collections",
				Text:  RenderSection(collectionLines, NoNewCollectionsText),
			},
			{
				Title: "## Updated Arrangement Maps",
				Text:  RenderSection(mapLines, NoUpdatedMapsText),
			},
		},
	}
}
