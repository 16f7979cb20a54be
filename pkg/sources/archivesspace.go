package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/archivio-hq/collection-notifier/internal/domain"
)

const sessionHeader = "X-ArchivesSpace-Session"

// ArchivesSpaceClient fetches published resource records from an
// ArchivesSpace-style search endpoint. It authenticates once per run and pages
// through the fixed publish:true resource query.
type ArchivesSpaceClient struct {
	client   HTTPClient
	baseURL  string
	username string
	password string
	pageSize int
}

// NewArchivesSpaceClient builds a client for the given instance.
func NewArchivesSpaceClient(client HTTPClient, baseURL, username, password string, pageSize int) *ArchivesSpaceClient {
	if pageSize <= 0 {
		pageSize = 200
	}
	return &ArchivesSpaceClient{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		pageSize: pageSize,
	}
}

type loginResponse struct {
	Session string `json:"session"`
}

type searchPage struct {
	ThisPage int             `json:"this_page"`
	LastPage int             `json:"last_page"`
	Results  []domain.Record `json:"results"`
}

// PublishedResources returns every published resource record, flattened across
// all result pages.
func (c *ArchivesSpaceClient) PublishedResources(ctx context.Context) ([]domain.Record, error) {
	session, err := c.login(ctx)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{sessionHeader: session}

	var records []domain.Record
	for page := 1; ; page++ {
		result, err := c.searchPage(ctx, headers, page)
		if err != nil {
			return nil, err
		}
		for _, rec := range result.Results {
			if strings.TrimSpace(rec.URI) == "" {
				return nil, fmt.Errorf("search result missing uri on page %d: %w", page, domain.ErrMalformedResponse)
			}
			records = append(records, rec)
		}
		if result.ThisPage >= result.LastPage {
			break
		}
	}
	return records, nil
}

func (c *ArchivesSpaceClient) login(ctx context.Context) (string, error) {
	loginURL := fmt.Sprintf("%s/users/%s/login?password=%s",
		c.baseURL, url.PathEscape(c.username), url.QueryEscape(c.password))

	resp, err := c.client.Post(ctx, loginURL, nil, nil)
	if err != nil {
		return "", fmt.Errorf("archivesspace login: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	if err := checkStatus("archivesspace login", resp); err != nil {
		return "", err
	}

	var login loginResponse
	if err := json.Unmarshal(resp.Body(), &login); err != nil {
		return "", fmt.Errorf("decode login response: %v: %w", err, domain.ErrMalformedResponse)
	}
	if login.Session == "" {
		return "", fmt.Errorf("login response missing session token: %w", domain.ErrMalformedResponse)
	}
	return login.Session, nil
}

func (c *ArchivesSpaceClient) searchPage(ctx context.Context, headers map[string]string, page int) (*searchPage, error) {
	query := url.Values{}
	query.Set("q", "publish:true")
	query.Add("type[]", "resource")
	query.Add("fields[]", "title,uri")
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(c.pageSize))
	searchURL := c.baseURL + "/search?" + query.Encode()

	resp, err := c.client.Get(ctx, searchURL, headers)
	if err != nil {
		return nil, fmt.Errorf("archivesspace search page %d: %v: %w", page, err, domain.ErrUpstreamUnavailable)
	}
	if err := checkStatus("archivesspace search", resp); err != nil {
		return nil, err
	}

	var result searchPage
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("decode search page %d: %v: %w", page, err, domain.ErrMalformedResponse)
	}
	return &result, nil
}
