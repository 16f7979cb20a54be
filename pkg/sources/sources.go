package sources

// Package sources contains clients for the two systems of record the notifier
// reads: the ArchivesSpace-style search API and the Cartographer-style
// arrangement-map API. Both speak JSON; both fail the run on the first
// non-success response.

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/archivio-hq/collection-notifier/internal/domain"
	"github.com/archivio-hq/collection-notifier/pkg/httpclient"
)

// HTTPClient aliases the shared httpclient.Client interface for clarity within sources.
type HTTPClient = httpclient.Client

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// checkStatus maps a non-2xx response to the upstream-unavailable sentinel.
func checkStatus(what string, resp httpclient.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}
	return fmt.Errorf("%s returned status %d: %s: %w",
		what, resp.StatusCode(), responseSnippet(resp.Body()), domain.ErrUpstreamUnavailable)
}
