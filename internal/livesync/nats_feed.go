package livesync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
)

// subjectPrefix namespaces unit change events on the wire.
const subjectPrefix = "brandintel.units."

// NATSFeed implements Feed over a NATS connection. Unit changes are
// published per subject under brandintel.units.<subject-id>. The connection's
// disconnect handler is global, so the feed registers it once and fans the
// notification out to every live subscription.
type NATSFeed struct {
	conn *nats.Conn

	mu       sync.Mutex
	handlers map[int]Handler
	nextID   int
}

// NewNATSFeed connects to the given NATS URL.
func NewNATSFeed(url string) (*NATSFeed, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	slog.Info("nats feed connected", slog.String("url", url))
	return newNATSFeed(conn), nil
}

// NewNATSFeedFromConn wraps an existing connection; the caller owns it.
func NewNATSFeedFromConn(conn *nats.Conn) *NATSFeed {
	return newNATSFeed(conn)
}

func newNATSFeed(conn *nats.Conn) *NATSFeed {
	f := &NATSFeed{conn: conn, handlers: map[int]Handler{}}
	conn.SetDisconnectErrHandler(func(_ *nats.Conn, err error) {
		f.dispatchDisconnect(err)
	})
	return f
}

// Subscribe registers for the subject's unit changes. The acknowledgment is
// reported as soon as the subscription is established.
func (f *NATSFeed) Subscribe(ctx context.Context, subjectID string, h Handler) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub, err := f.conn.Subscribe(subjectPrefix+subjectID, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Warn("malformed unit change event", slog.Any("error", err))
			return
		}
		h.OnEvent(event)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subjectID, err)
	}

	id := f.addHandler(h)
	h.OnConnected()
	return &natsSubscription{feed: f, id: id, sub: sub}, nil
}

func (f *NATSFeed) addHandler(h Handler) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.handlers[id] = h
	return id
}

func (f *NATSFeed) removeHandler(id int) {
	f.mu.Lock()
	delete(f.handlers, id)
	f.mu.Unlock()
}

// dispatchDisconnect fans a transport drop out to every live subscription so
// each channel can run its own reconnect loop.
func (f *NATSFeed) dispatchDisconnect(err error) {
	f.mu.Lock()
	hs := make([]Handler, 0, len(f.handlers))
	for _, h := range f.handlers {
		hs = append(hs, h)
	}
	f.mu.Unlock()

	for _, h := range hs {
		h.OnDisconnected(err)
	}
}

// Publish sends one unit change event, used by the service layer after every
// unit or document mutation.
func (f *NATSFeed) Publish(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := f.conn.Publish(subjectPrefix+event.SubjectID, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close drains the underlying connection.
func (f *NATSFeed) Close() {
	f.conn.Close()
}

type natsSubscription struct {
	feed *NATSFeed
	id   int
	sub  *nats.Subscription
	once sync.Once
}

// Close drops the disconnect registration and the server-side subscription.
// The client library restores subscriptions on its own reconnect, so a stale
// one must be unsubscribed explicitly or events arrive twice.
func (s *natsSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.feed.removeHandler(s.id)
		err = s.sub.Unsubscribe()
	})
	return err
}
