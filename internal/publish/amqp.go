package publish

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rabbitmq/amqp091-go"

	"github.com/efebarandurmaz/flowgraph/internal/unified"
)

// DefaultRoutingKey is used when no routing key is configured.
const DefaultRoutingKey = "graph.built"

// Channel is the part of *amqp091.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQPPublisher publishes graph JSON to a topic exchange.
type AMQPPublisher struct {
	conn       *amqp091.Connection
	ch         Channel
	exchange   string
	routingKey string
	declared   bool
}

// DialAMQP connects to the broker and opens a channel.
func DialAMQP(url, exchange, routingKey string) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	p := NewAMQPPublisher(ch, exchange, routingKey)
	p.conn = conn
	return p, nil
}

// NewAMQPPublisher wraps an open channel.
func NewAMQPPublisher(ch Channel, exchange, routingKey string) *AMQPPublisher {
	if routingKey == "" {
		routingKey = DefaultRoutingKey
	}
	return &AMQPPublisher{ch: ch, exchange: exchange, routingKey: routingKey}
}

func (p *AMQPPublisher) Name() string { return "amqp" }

func (p *AMQPPublisher) Publish(ctx context.Context, g *unified.Graph) (string, error) {
	if !p.declared {
		err := p.ch.ExchangeDeclare(
			p.exchange,
			"topic",
			true,  // durable
			false, // autoDelete
			false, // internal
			false, // noWait
			nil,
		)
		if err != nil {
			return "", fmt.Errorf("exchange declare %s: %w", p.exchange, err)
		}
		p.declared = true
	}

	data, err := encode(g)
	if err != nil {
		return "", err
	}
	msgID, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("message id: %w", err)
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		MessageId:    msgID,
		Type:         p.routingKey,
		Headers: amqp091.Table{
			"graphId": g.ID(),
			"nodes":   int32(g.NodeCount()),
			"edges":   int32(g.EdgeCount()),
		},
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, publishing); err != nil {
		return "", fmt.Errorf("publish %s: %w", p.routingKey, err)
	}
	return fmt.Sprintf("amqp://%s/%s#%s", p.exchange, p.routingKey, msgID), nil
}

// Close closes the channel and, when dialed by DialAMQP, the connection.
func (p *AMQPPublisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

var _ Publisher = (*AMQPPublisher)(nil)
