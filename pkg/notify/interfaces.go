package notify

import (
	"context"

	"github.com/archivio-hq/collection-notifier/pkg/message"
)

// Sink delivers a rendered card to a downstream channel (Teams webhook, SQS,
// SNS, Pub/Sub).
type Sink interface {
	ID() string
	Type() string
	Send(ctx context.Context, card message.Card) error
}
