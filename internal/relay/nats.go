package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

const DefaultNATSSubject = "siglab.health.snapshot"

// NATSConn is the subset of *nats.Conn the sink needs.
type NATSConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type NATSSink struct {
	conn    NATSConn
	subject string
}

func NewNATSSink(conn NATSConn, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultNATSSubject
	}
	return &NATSSink{conn: conn, subject: subject}
}

// DialNATS connects to url and keeps reconnecting in the background.
func DialNATS(url string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("siglab-monitor"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("Connected to NATS", slog.String("url", url))
	return nc, nil
}

func (s *NATSSink) Name() string { return "nats" }

// Send publishes payload. The client buffers publishes, so ctx only guards
// against sending after cancellation.
func (s *NATSSink) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.conn.Publish(s.subject, payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", s.subject, err)
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (s *NATSSink) Close() error {
	return s.conn.Drain()
}
