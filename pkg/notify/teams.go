package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/archivio-hq/collection-notifier/internal/domain"
	"github.com/archivio-hq/collection-notifier/pkg/httpclient"
	"github.com/archivio-hq/collection-notifier/pkg/message"
)

// teamsSink posts the card JSON to a Teams incoming-webhook URL. One POST, no
// retries; a non-2xx response fails the run.
type teamsSink struct {
	id     string
	url    string
	client *resty.Client
}

func newTeamsSink(cfg SinkConfig) (Sink, error) {
	if cfg.Teams == nil {
		return nil, fmt.Errorf("sink %q missing teams configuration", cfg.ID)
	}

	client := httpclient.NewRestyHTTPClient(time.Duration(cfg.Teams.TimeoutSeconds) * time.Second)

	return &teamsSink{
		id:     cfg.ID,
		url:    cfg.Teams.URL,
		client: client,
	}, nil
}

// NewTeamsSink builds the implicit webhook sink used when no sinks file is
// configured.
func NewTeamsSink(id, url string, timeout time.Duration) Sink {
	return &teamsSink{
		id:     id,
		url:    url,
		client: httpclient.NewRestyHTTPClient(timeout),
	}
}

func (t *teamsSink) ID() string   { return t.id }
func (t *teamsSink) Type() string { return TypeTeams }

func (t *teamsSink) Send(ctx context.Context, card message.Card) error {
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(card).
		Post(t.url)
	if err != nil {
		return fmt.Errorf("webhook post: %v: %w", err, domain.ErrUpstreamUnavailable)
	}
	if resp.IsError() {
		snippet := readBodySnippet(resp.Body())
		return fmt.Errorf("webhook response status %d: %s: %w",
			resp.StatusCode(), snippet, domain.ErrUpstreamUnavailable)
	}
	return nil
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
