package publish

import (
	"context"
	"errors"
	"io"

	"github.com/efebarandurmaz/flowgraph/internal/config"
)

// FromConfig builds the sinks the configuration enables: S3 when a bucket is
// set and AMQP when a broker URL is set. The caller owns the returned sinks
// and releases them with Close.
func FromConfig(ctx context.Context, cfg *config.Config) ([]Publisher, error) {
	var sinks []Publisher
	if cfg.Storage.Bucket != "" {
		client, err := NewS3Client(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, NewS3Publisher(client, cfg.Storage.Bucket, cfg.Storage.Prefix))
	}
	if cfg.Publish.URL != "" {
		p, err := DialAMQP(cfg.Publish.URL, cfg.Publish.Exchange, cfg.Publish.RoutingKey)
		if err != nil {
			return nil, errors.Join(err, Close(sinks))
		}
		sinks = append(sinks, p)
	}
	return sinks, nil
}

// Close releases every sink that holds a connection.
func Close(sinks []Publisher) error {
	var errs []error
	for _, s := range sinks {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
