package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"hrdoc-assistant/internal/model"
)

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type chatLogPayload struct {
	Timestamp string `json:"timestamp"`
	Query     string `json:"query"`
	Response  string `json:"response"`
}

// ChatLogPublisher mirrors audit-log entries onto a durable queue for
// downstream consumers. The queue is declared once per opened channel.
type ChatLogPublisher struct {
	open      func() (Channel, error)
	queueName string

	mu       sync.Mutex
	ch       Channel
	declared bool
}

func NewChatLogPublisher(conn *amqp.Connection, queueName string) *ChatLogPublisher {
	return newChatLogPublisher(func() (Channel, error) {
		return conn.Channel()
	}, queueName)
}

func newChatLogPublisher(open func() (Channel, error), queueName string) *ChatLogPublisher {
	return &ChatLogPublisher{
		open:      open,
		queueName: queueName,
	}
}

func (p *ChatLogPublisher) Publish(ctx context.Context, entry model.ChatLog) error {
	payload, err := json.Marshal(chatLogPayload{
		Timestamp: entry.Timestamp.Format(time.RFC3339Nano),
		Query:     entry.Query,
		Response:  entry.Response,
	})
	if err != nil {
		return fmt.Errorf("marshal chat log payload failed: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			Timestamp:    entry.Timestamp,
		},
	); err != nil {
		p.reset()
		return fmt.Errorf("publish chat log failed: %w", err)
	}
	return nil
}

func (p *ChatLogPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	p.declared = false
	return err
}

func (p *ChatLogPublisher) channel() (Channel, error) {
	if p.ch == nil {
		ch, err := p.open()
		if err != nil {
			return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
		}
		p.ch = ch
		p.declared = false
	}
	if !p.declared {
		if _, err := p.ch.QueueDeclare(
			p.queueName,
			true,
			false,
			false,
			false,
			nil,
		); err != nil {
			p.reset()
			return nil, fmt.Errorf("declare queue failed: %w", err)
		}
		p.declared = true
	}
	return p.ch, nil
}

// reset drops a channel the broker has closed after an error.
func (p *ChatLogPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	p.ch = nil
	p.declared = false
}
