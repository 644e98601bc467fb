// Package mqtt is a thin adapter over an MQTT client library. Every call is forwarded to a
// Backend produced by an injected Factory; the adapter only adds handler registration and
// the Message wrapper.
package mqtt

import (
	"sync"
	"sync/atomic"

	"github.com/celerway/gaugeboard/log"
	"github.com/google/uuid"
)

var defaultLogger = log.Default().WithPrefix("[mqtt]")

type registration[H any] struct {
	id      uint64
	handler H
}

type Client struct {
	backend  Backend
	endpoint string
	clientID string
	logger   atomic.Pointer[log.Logger]

	mu           sync.RWMutex
	nextID       uint64
	lostHandlers []registration[ConnectionLostHandler]
	msgHandlers  []registration[MessageHandler]
}

// New creates the backend through factory. An empty clientID is replaced by a random UUID.
// Factory failures are logged and returned as *ConstructionError.
func New(factory Factory, endpoint, clientID string) (*Client, error) {
	if clientID == "" {
		clientID = uuid.NewString()
	}
	backend, err := factory(endpoint, clientID)
	if err != nil {
		defaultLogger.Errorf("Could not create client %s for %s: %s", clientID, endpoint, err)
		return nil, &ConstructionError{Endpoint: endpoint, ClientID: clientID, Err: err}
	}
	c := &Client{
		backend:  backend,
		endpoint: endpoint,
		clientID: clientID,
	}
	c.logger.Store(defaultLogger)
	backend.SetOnConnectionLost(c.handleConnectionLost)
	backend.SetOnMessageArrived(c.handleMessageArrived)
	c.logger.Load().Debugf("Client %s created for %s", clientID, endpoint)
	return c, nil
}

// SetLogger replaces the client's logger. Safe to call while callbacks are running.
func (c *Client) SetLogger(logger *log.Logger) {
	c.logger.Store(logger)
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) ClientID() string {
	return c.clientID
}

func (c *Client) Connect(opts ConnectOptions) error {
	return c.backend.Connect(opts)
}

func (c *Client) Disconnect() {
	c.backend.Disconnect()
}

// Connected reports the backend's current connection state.
func (c *Client) Connected() bool {
	return c.backend.IsConnected()
}

func (c *Client) Subscribe(filter string, opts SubscribeOptions) error {
	return c.backend.Subscribe(filter, opts)
}

func (c *Client) Publish(topic string, payload []byte, qos QoS, retained bool) error {
	return c.backend.Publish(topic, payload, qos, retained)
}

// SetOnConnectionLost adds a handler called with the backend's reason whenever the connection drops.
func (c *Client) SetOnConnectionLost(handler ConnectionLostHandler) Unregister {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.lostHandlers = append(c.lostHandlers, registration[ConnectionLostHandler]{id: id, handler: handler})
	return c.unregister(func() {
		c.lostHandlers = removeRegistration(c.lostHandlers, id)
	})
}

// SetOnMessageArrived adds a handler called with every inbound message, in registration order.
func (c *Client) SetOnMessageArrived(handler MessageHandler) Unregister {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.msgHandlers = append(c.msgHandlers, registration[MessageHandler]{id: id, handler: handler})
	return c.unregister(func() {
		c.msgHandlers = removeRegistration(c.msgHandlers, id)
	})
}

func (c *Client) unregister(remove func()) Unregister {
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			remove()
		})
	}
}

func removeRegistration[H any](regs []registration[H], id uint64) []registration[H] {
	out := regs[:0:0]
	for _, r := range regs {
		if r.id != id {
			out = append(out, r)
		}
	}
	return out
}

func (c *Client) handleConnectionLost(reason error) {
	c.logger.Load().Warnf("Connection lost (%s): %v", c.clientID, reason)
	c.mu.RLock()
	handlers := make([]ConnectionLostHandler, 0, len(c.lostHandlers))
	for _, r := range c.lostHandlers {
		handlers = append(handlers, r.handler)
	}
	c.mu.RUnlock()
	for _, h := range handlers {
		h(reason)
	}
}

func (c *Client) handleMessageArrived(raw RawMessage) {
	msg := NewMessage(raw)
	c.logger.Load().Debugf("Message arrived: %s", msg)
	c.mu.RLock()
	handlers := make([]MessageHandler, 0, len(c.msgHandlers))
	for _, r := range c.msgHandlers {
		handlers = append(handlers, r.handler)
	}
	c.mu.RUnlock()
	for _, h := range handlers {
		h(msg)
	}
}
