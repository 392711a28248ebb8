package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Client names reported to the NATS server.
const (
	publisherName  = "eventdesk"
	subscriberName = "eventdesk-watch"
)

// subscriptionBuffer bounds the messages queued per subscription. A slow
// reader loses messages rather than stalling the connection.
const subscriptionBuffer = 64

const closeFlushTimeout = 2 * time.Second

func dial(url string, opts ...nats.Option) (*nats.Conn, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher sends each payload as JSON on its subject.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects a publisher to url.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := dial(url, nats.Name(publisherName))
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

// Publish encodes payload and queues it for topic. It returns ctx's error
// without sending when ctx is already done.
func (p *NATSPublisher) Publish(ctx context.Context, topic string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}
	if err := p.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Flush waits until the server has seen every queued message.
func (p *NATSPublisher) Flush() error {
	return p.conn.Flush()
}

// Close sends what is still queued, within a short timeout, and then closes
// the connection.
func (p *NATSPublisher) Close() error {
	if !p.conn.IsClosed() {
		_ = p.conn.FlushTimeout(closeFlushTimeout)
	}
	p.conn.Close()
	return nil
}

// NATSSubscriber hands out channel subscriptions on one connection that
// reconnects forever.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects a subscriber to url. opts are applied after the
// defaults, so callers can add connection handlers or override them.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	all := append([]nats.Option{
		nats.Name(subscriberName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}, opts...)
	nc, err := dial(url, all...)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// Subscribe delivers messages for topic, which may use NATS wildcards such as
// TopicAll. The subscription is registered with the server before Subscribe
// returns.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan Message, func(), error) {
	cs := &chanSub{ch: make(chan Message, subscriptionBuffer)}

	sub, err := s.conn.Subscribe(topic, cs.deliver)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	cs.sub = sub
	if err := s.conn.Flush(); err != nil {
		cs.cancel()
		return nil, nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return cs.ch, cs.cancel, nil
}

// Close drops the connection and every subscription on it.
func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}

// chanSub forwards one NATS subscription into a buffered channel.
type chanSub struct {
	ch  chan Message
	sub *nats.Subscription

	mu   sync.Mutex // serializes deliver with cancel
	done bool
}

func (c *chanSub) deliver(msg *nats.Msg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return
	}
	select {
	case c.ch <- Message{Topic: msg.Subject, Data: msg.Data}:
	default:
	}
}

// cancel unsubscribes and closes the channel. Messages still queued are
// discarded. Safe to call more than once.
func (c *chanSub) cancel() {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	c.mu.Unlock()

	if c.sub != nil {
		_ = c.sub.Unsubscribe()
	}
	for {
		select {
		case <-c.ch:
		default:
			close(c.ch)
			return
		}
	}
}
