package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Job is the payload published for an external delivery worker.
type Job struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	From      string    `json:"from"`
	Subject   string    `json:"subject"`
	HTML      string    `json:"html"`
	CreatedAt time.Time `json:"created_at"`
}

type publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSMailer hands emails to a JetStream work queue consumed by a delivery
// worker. Send returns once the stream has acknowledged the job.
type NATSMailer struct {
	js      publisher
	conn    *nats.Conn
	subject string
	from    string
}

// NewNATSMailer connects to NATS and ensures the mail stream exists.
func NewNATSMailer(ctx context.Context, url, subject, from string) (*NATSMailer, error) {
	conn, err := nats.Connect(url, nats.Name("lostfound-mailer"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        "LOSTFOUND_MAIL",
		Description: "Outgoing notification emails",
		Subjects:    []string{subject},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      72 * time.Hour,
		Replicas:    1,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating mail stream: %w", err)
	}

	return &NATSMailer{js: js, conn: conn, subject: subject, from: from}, nil
}

func (m *NATSMailer) Send(ctx context.Context, to, subject, html string) error {
	if err := validateAddress(to); err != nil {
		return err
	}

	job := Job{
		ID:        uuid.NewString(),
		To:        to,
		From:      m.from,
		Subject:   subject,
		HTML:      html,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding mail job: %w", err)
	}

	// Job ID is the JetStream dedup key.
	if _, err := m.js.Publish(ctx, m.subject, data, jetstream.WithMsgID(job.ID)); err != nil {
		return fmt.Errorf("publishing mail job: %w", err)
	}
	return nil
}

// Close drains the NATS connection.
func (m *NATSMailer) Close() error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Drain()
}
