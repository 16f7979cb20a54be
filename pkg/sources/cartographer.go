package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/archivio-hq/collection-notifier/internal/domain"
)

// CartographerClient fetches arrangement maps modified since a timestamp.
// Maps expose their own internal ref, not the archival URI needed for deep
// links, so each map costs one extra lookup to resolve its first child's URI.
type CartographerClient struct {
	client  HTTPClient
	baseURL string
}

// NewCartographerClient builds a client for the given instance.
func NewCartographerClient(client HTTPClient, baseURL string) *CartographerClient {
	return &CartographerClient{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type mapsResponse struct {
	Results []domain.ArrangementMap `json:"results"`
}

type mapDetail struct {
	Children []struct {
		ArchivesSpaceURI string `json:"archivesspace_uri"`
	} `json:"children"`
}

// UpdatedMaps returns all maps modified since the given time, each with its
// archival URI resolved. Lookups are sequential; the first failure aborts the
// whole fetch with no partial result.
func (c *CartographerClient) UpdatedMaps(ctx context.Context, since time.Time) ([]domain.ArrangementMap, error) {
	listURL := fmt.Sprintf("%s/api/maps/?modified_since=%d", c.baseURL, since.Unix())

	resp, err := c.client.Get(ctx, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cartographer maps: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	if err := checkStatus("cartographer maps", resp); err != nil {
		return nil, err
	}

	var list mapsResponse
	if err := json.Unmarshal(resp.Body(), &list); err != nil {
		return nil, fmt.Errorf("decode maps response: %v: %w", err, domain.ErrMalformedResponse)
	}

	maps := make([]domain.ArrangementMap, 0, len(list.Results))
	for _, m := range list.Results {
		uri, err := c.resolveURI(ctx, m.Ref)
		if err != nil {
			return nil, err
		}
		m.URI = uri
		maps = append(maps, m)
	}
	return maps, nil
}

// resolveURI looks up a map by its ref and returns the first child's archival URI.
func (c *CartographerClient) resolveURI(ctx context.Context, ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", fmt.Errorf("map entry missing ref: %w", domain.ErrMalformedResponse)
	}

	resp, err := c.client.Get(ctx, c.baseURL+ref, nil)
	if err != nil {
		return "", fmt.Errorf("cartographer map %s: %v: %w", ref, err, domain.ErrUpstreamUnavailable)
	}
	if err := checkStatus("cartographer map "+ref, resp); err != nil {
		return "", err
	}

	var detail mapDetail
	if err := json.Unmarshal(resp.Body(), &detail); err != nil {
		return "", fmt.Errorf("decode map %s: %v: %w", ref, err, domain.ErrMalformedResponse)
	}
	if len(detail.Children) == 0 || strings.TrimSpace(detail.Children[0].ArchivesSpaceURI) == "" {
		return "", fmt.Errorf("map %s has no resolvable child uri: %w", ref, domain.ErrMalformedResponse)
	}
	return detail.Children[0].ArchivesSpaceURI, nil
}
