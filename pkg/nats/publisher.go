package nats

import (
	"context"
	"fmt"

	"github.com/abgdnv/fscatalog/pkg/config"
	"github.com/abgdnv/fscatalog/pkg/messaging"
	"github.com/nats-io/nats.go/jetstream"
)

type NatsPublisher struct {
	js   jetstream.JetStream
	opts []jetstream.PublishOpt
}

// NewNatsPublisher creates a JetStream publisher retrying unacknowledged publishes per cfg.
func NewNatsPublisher(js jetstream.JetStream, cfg config.RetryConfig) *NatsPublisher {
	var opts []jetstream.PublishOpt
	if cfg.MaxAttempts > 0 {
		opts = append(opts, jetstream.WithRetryAttempts(cfg.MaxAttempts))
	}
	if cfg.InitialBackoff > 0 {
		opts = append(opts, jetstream.WithRetryWait(cfg.InitialBackoff))
	}
	return &NatsPublisher{js: js, opts: opts}
}

func (p *NatsPublisher) Publish(ctx context.Context, event messaging.Event) error {
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("failed to get event payload: %w", err)
	}
	_, err = p.js.Publish(ctx, event.Subject(), data, p.opts...)
	return err
}
