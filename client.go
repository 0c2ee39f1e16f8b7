package mqttsn

import (
	"context"
	"log"

	"github.com/golang-io/mqttsn/packet"
	"golang.org/x/sync/errgroup"
)

// Client is an MQTT-SN client. It owns one UDP socket and one session
// for its entire lifetime; the session's state machine runs on a single
// goroutine started by Run (spec.md §5). A Client is safe for
// concurrent use by multiple goroutines once Run has been called:
// Publish, Subscribe and Disconnect hand off to that goroutine rather
// than touching session state themselves, and Status reads an
// atomically stored copy of the state.
type Client struct {
	cfg    Config
	topics []string
	stat   *Stat

	eng       *engine
	transport *udpTransport
}

// New builds a Client for cfg, pre-declaring topics (registered in the
// order given on every (re)connect, spec.md §4.6) and delivering inbound
// PUBLISH messages to onMessage. onMessage may be nil.
func New(cfg Config, topics []string, onMessage func(topicName string, payload []byte)) *Client {
	stat := NewStat()
	return &Client{
		cfg:    cfg,
		topics: topics,
		stat:   stat,
		eng:    newEngine(cfg, stat, onMessage),
	}
}

// Stat exposes the client's Prometheus collectors for registration.
func (c *Client) Stat() *Stat { return c.stat }

// Status reports the current session state (spec.md §4.5).
func (c *Client) Status() Status { return c.eng.Status() }

// Run dials the broker, bootstraps the session (spec.md §4.6
// create_session) and drives the protocol engine until ctx is
// cancelled or an unrecoverable transport error occurs. It does not
// return until the session has fully stopped.
func (c *Client) Run(ctx context.Context) error {
	log.Printf("mqttsn: client dialing broker: client_id=%s, broker=%s", c.cfg.ClientID, c.cfg.BrokerAddr)
	transport, err := DialUDP(c.cfg.BrokerAddr, c.stat)
	if err != nil {
		log.Printf("mqttsn: client dial failed: client_id=%s, broker=%s, error=%v", c.cfg.ClientID, c.cfg.BrokerAddr, err)
		return err
	}
	c.transport = transport
	c.eng.transport = transport
	defer transport.Close()

	if err := c.eng.createSession(c.topics); err != nil {
		log.Printf("mqttsn: client session bootstrap failed: client_id=%s, error=%v", c.cfg.ClientID, err)
		return err
	}
	log.Printf("mqttsn: client session started: client_id=%s, broker=%s, topics=%d", c.cfg.ClientID, c.cfg.BrokerAddr, len(c.topics))

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		// Closing the socket is what unblocks receiveLoop's Read.
		<-ctx.Done()
		transport.Close()
		return nil
	})
	group.Go(func() error {
		return transport.receiveLoop(ctx, c.eng.events)
	})
	group.Go(func() error {
		return c.eng.loop(ctx)
	})

	err = group.Wait()
	log.Printf("mqttsn: client stopped: client_id=%s, error=%v", c.cfg.ClientID, err)
	return err
}

// Publish sends a PUBLISH for topicName, which must already be
// registered (spec.md §4.5 "Publish policy"), with retain and qos
// encoded in its flags; no acknowledgement is awaited or processed,
// whatever the qos. It blocks until the engine has accepted or rejected
// the request, or ctx is done.
func (c *Client) Publish(ctx context.Context, topicName string, payload []byte, retain bool, qos int8) error {
	if len(payload) > packet.MaxPacketLength-8 {
		return ErrPayloadTooLarge
	}
	result := make(chan error, 1)
	req := &publishRequest{topic: topicName, payload: payload, retain: retain, qos: qos, result: result}
	if err := c.post(ctx, event{kind: eventPublish, publish: req}); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe enqueues a subscription for topicName (spec.md §4.5
// "Subscribe policy"): a wildcard filter (containing `#` or `+`) is
// handled through the single outstanding wildcard slot, everything else
// requires the topic to already be registered and not already
// subscribed or pending.
func (c *Client) Subscribe(ctx context.Context, topicName string, qos int8) error {
	if len(topicName) > packet.MaxTopicLength {
		return ErrTopicTooLong
	}
	result := make(chan error, 1)
	req := &subscribeRequest{topic: topicName, qos: qos, result: result}
	if err := c.post(ctx, event{kind: eventSubscribe, subscribe: req}); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect sends DISCONNECT and stops the session's timers. duration
// is the optional sleep duration (0 for a plain disconnect).
func (c *Client) Disconnect(ctx context.Context, duration uint16) error {
	done := make(chan struct{})
	req := &disconnectRequest{duration: duration, done: done}
	if err := c.post(ctx, event{kind: eventDisconnect, disconnect: req}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) post(ctx context.Context, ev event) error {
	select {
	case c.eng.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
