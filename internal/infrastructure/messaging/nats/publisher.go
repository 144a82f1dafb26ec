package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

// Options configures the JetStream publisher.
type Options struct {
	URL string
	// Stream is created on startup when missing and captures every subject under Subjects.
	Stream   string
	Subjects []string
	MaxAge   time.Duration
}

// NATSPublisher publishes analysis history events to NATS JetStream.
type NATSPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logger.Logger
}

// NewNATSPublisher connects to NATS and makes sure the events stream exists.
func NewNATSPublisher(opts Options, log *logger.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(opts.URL,
		nats.Name("fastqc-analyzer"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	p := &NATSPublisher{nc: nc, js: js, logger: log}
	if opts.Stream != "" {
		if err := p.ensureStream(opts); err != nil {
			nc.Close()
			return nil, err
		}
	}

	log.Info("Connected to NATS", "url", opts.URL, "stream", opts.Stream)
	return p, nil
}

func (p *NATSPublisher) ensureStream(opts Options) error {
	if _, err := p.js.StreamInfo(opts.Stream); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to inspect stream %s: %w", opts.Stream, err)
	}

	subjects := opts.Subjects
	if len(subjects) == 0 {
		subjects = []string{"fastqc.>"}
	}

	_, err := p.js.AddStream(&nats.StreamConfig{
		Name:     opts.Stream,
		Subjects: subjects,
		MaxAge:   opts.MaxAge,
		Storage:  nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", opts.Stream, err)
	}

	p.logger.Info("JetStream stream created", "stream", opts.Stream, "subjects", subjects)
	return nil
}

// PublishEvent publishes an event asynchronously; JetStream deduplicates on the message id.
func (p *NATSPublisher) PublishEvent(ctx context.Context, subject string, event interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, uuid.NewString())
	msg.Header.Set("Content-Type", "application/json")

	if _, err := p.js.PublishMsgAsync(msg); err != nil {
		p.logger.Error("Failed to publish event", err,
			"subject", subject,
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Event published",
		"subject", subject,
		"size", len(data),
	)

	return nil
}

// Close waits briefly for pending acks and drains the connection.
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}

	select {
	case <-p.js.PublishAsyncComplete():
	case <-time.After(5 * time.Second):
		p.logger.Warn("Timed out waiting for pending NATS acks")
	}

	p.logger.Info("Closing NATS connection")
	return p.nc.Drain()
}
