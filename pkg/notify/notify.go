// Package notify announces cleaned documents to interested consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/racetiming-analytics/log"
)

// Cleaned is published once a cleaned artifact was written.
type Cleaned struct {
	RunID    string    `json:"runId"`
	Kind     string    `json:"kind"`
	Document string    `json:"document"`
	RaceID   string    `json:"raceId"`
	Rows     int       `json:"rows"`
	Artifact string    `json:"artifact"`
	Time     time.Time `json:"time"`
}

type Notifier interface {
	Cleaned(ctx context.Context, msg *Cleaned) error
}

// Subject returns the subject for cleaned documents of a report kind.
func Subject(kind string) string {
	return fmt.Sprintf("racetiming.%s.cleaned", kind)
}

// Publisher is the interface of *nats.Conn we need.
type Publisher interface {
	Publish(subj string, data []byte) error
}

type (
	NatsNotifier struct {
		pub Publisher
		l   *log.Logger
	}
	Option func(*NatsNotifier)
)

func WithLogger(l *log.Logger) Option {
	return func(n *NatsNotifier) {
		n.l = l
	}
}

func NewNatsNotifier(pub Publisher, opts ...Option) *NatsNotifier {
	ret := &NatsNotifier{
		pub: pub,
		l:   log.Default().Named("notify"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Connect opens a NATS connection for the notifier.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("racetiming-analytics"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second))
}

func (n *NatsNotifier) Cleaned(ctx context.Context, msg *Cleaned) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	subj := Subject(msg.Kind)
	if err := n.pub.Publish(subj, data); err != nil {
		return fmt.Errorf("publish %s: %w", subj, err)
	}
	n.l.Debug("published", log.String("subject", subj), log.String("document", msg.Document))
	return nil
}

// Noop discards all notifications.
type Noop struct{}

func (Noop) Cleaned(context.Context, *Cleaned) error { return nil }
