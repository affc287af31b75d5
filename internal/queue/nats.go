// Package queue delivers repository ingest requests to the worker over
// NATS. Messages are plain repository URLs; queue-group subscription gives
// at-most-one delivery per worker pool.
package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultSubject carries ingest requests.
	DefaultSubject = "repo.ingest.requests"
	// DefaultGroup is the worker queue group.
	DefaultGroup = "ingest-workers"
)

// Consumer pulls repository URLs off a NATS subject.
type Consumer struct {
	conn *nats.Conn
	sub  *nats.Subscription
}

// Connect dials the NATS server and subscribes as part of the queue group.
func Connect(url, subject, group string) (*Consumer, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	if group == "" {
		group = DefaultGroup
	}
	conn, err := nats.Connect(url,
		nats.Name("repoingest-worker"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to queue at %s: %w", url, err)
	}
	sub, err := conn.QueueSubscribeSync(subject, group)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	log.Info().Str("subject", subject).Str("group", group).Msg("subscribed to ingest queue")
	return &Consumer{conn: conn, sub: sub}, nil
}

// Next blocks until an ingest request arrives or the context is done. The
// returned string is the repository URL as published.
func (c *Consumer) Next(ctx context.Context) (string, error) {
	msg, err := c.sub.NextMsgWithContext(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(msg.Data)), nil
}

// Publish sends an ingest request; used by tests and by any producer that
// shares this package.
func Publish(conn *nats.Conn, subject, repoURL string) error {
	if subject == "" {
		subject = DefaultSubject
	}
	return conn.Publish(subject, []byte(repoURL))
}

// Close drains the subscription and closes the connection.
func (c *Consumer) Close() {
	if c.sub != nil {
		_ = c.sub.Unsubscribe()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
