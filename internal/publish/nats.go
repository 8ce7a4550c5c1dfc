// Package publish announces finished runs to other services over NATS.
package publish

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/setsim/internal/foundation/errors"
	"git.home.luguber.info/inful/setsim/internal/logfields"
	"git.home.luguber.info/inful/setsim/internal/stats"
)

// Announcement is the JSON payload published for each run.
type Announcement struct {
	stats.Run
	ElapsedSeconds float64       `json:"elapsed_seconds"`
	GamesPerSecond float64       `json:"games_per_second"`
	Setless        []SetlessRate `json:"setless,omitempty"`
}

// SetlessRate is the observed probability of a setless hand for one group.
type SetlessRate struct {
	HandSize int     `json:"hand_size"`
	HandType string  `json:"hand_type"`
	Deals    int     `json:"deals"`
	Hands    uint64  `json:"hands"`
	PSetless float64 `json:"p_setless"`
}

// NewAnnouncement summarises a run and the table it produced.
func NewAnnouncement(run stats.Run, t stats.Table) Announcement {
	a := Announcement{
		Run:            run,
		ElapsedSeconds: run.FinishedAt.Sub(run.StartedAt).Seconds(),
		GamesPerSecond: run.GamesPerSecond(),
	}
	for _, tot := range stats.Summarize(t) {
		if tot.Setless == 0 {
			continue
		}
		a.Setless = append(a.Setless, SetlessRate{
			HandSize: tot.HandSize,
			HandType: string(tot.HandType),
			Deals:    tot.Deals,
			Hands:    tot.Hands,
			PSetless: tot.PSetless(),
		})
	}
	return a
}

// Encode marshals the announcement.
func (a Announcement) Encode() ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, errors.InternalError("marshal run announcement").
			WithContext("run_id", a.ID).WithCause(err).Build()
	}
	return data, nil
}

// conn is the subset of *nats.Conn used by the publisher.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher publishes announcements on a fixed subject.
type NATSPublisher struct {
	conn    conn
	subject string
}

// Connect dials url and returns a publisher for subject.
func Connect(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("setsim"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, errors.MessagingError("failed to connect to NATS").
			WithContext("url", url).WithCause(err).Build()
	}
	slog.Info("NATS publisher connected", logfields.Addr(url), logfields.Subject(subject))
	return &NATSPublisher{conn: nc, subject: subject}, nil
}

// Publish sends the announcement and waits for the server to acknowledge
// the flush.
func (p *NATSPublisher) Publish(ctx context.Context, a Announcement) error {
	data, err := a.Encode()
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return errors.MessagingError("failed to publish run announcement").
			WithContext("subject", p.subject).WithCause(err).Build()
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.MessagingError("failed to flush run announcement").
			WithContext("subject", p.subject).WithCause(err).Build()
	}

	slog.Debug("Published run announcement", logfields.RunID(a.ID), logfields.Subject(p.subject))
	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}
