// Package events announces article writes on a RabbitMQ exchange.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/quillpost/quillpost-server/internal/domain"
)

// Actions carried by ArticleMessage.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// ArticleMessage is the body of every published event.
type ArticleMessage struct {
	Action    string          `json:"action"`
	Article   *domain.Article `json:"article"`
	Timestamp time.Time       `json:"timestamp"`
}

// Publisher announces a successful article write.
type Publisher interface {
	PublishArticle(ctx context.Context, article *domain.Article, created bool) error
}

// Noop is used when no AMQP URL is configured.
type Noop struct{}

func (Noop) PublishArticle(context.Context, *domain.Article, bool) error { return nil }

// Config configures the RabbitMQ publisher.
type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQ publishes ArticleMessage events to a durable topic exchange.
type RabbitMQ struct {
	conn       *amqp.Connection
	channel    channel
	exchange   string
	routingKey string
	logger     *slog.Logger
	now        func() time.Time
}

// NewRabbitMQ dials cfg.URL and declares the exchange.
func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	logger.Info("connected to rabbitmq", "exchange", cfg.Exchange, "routing_key", cfg.RoutingKey)

	p := newRabbitMQ(ch, cfg, logger)
	p.conn = conn
	return p, nil
}

func newRabbitMQ(ch channel, cfg Config, logger *slog.Logger) *RabbitMQ {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RabbitMQ{
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
		now:        time.Now,
	}
}

// PublishArticle sends one persistent message. It is not retried.
func (r *RabbitMQ) PublishArticle(ctx context.Context, article *domain.Article, created bool) error {
	action := ActionUpdated
	if created {
		action = ActionCreated
	}

	now := r.now().UTC()
	body, err := json.Marshal(ArticleMessage{
		Action:    action,
		Article:   article,
		Timestamp: now,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			MessageId:    uuid.NewString(),
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Type:         "article." + action,
			Body:         body,
			Timestamp:    now,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published article event", "article_id", article.ID, "slug", article.Slug, "action", action)
	return nil
}

// Close closes the channel and connection.
func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
