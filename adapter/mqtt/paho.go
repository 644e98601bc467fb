package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const disconnectQuiesce = 250 // ms

var secureSchemes = map[string]string{
	"tcp":   "ssl",
	"mqtt":  "mqtts",
	"ws":    "wss",
	"ssl":   "ssl",
	"tls":   "tls",
	"mqtts": "mqtts",
	"wss":   "wss",
}

// NewTlsConfig loads a root CA and, when given, a client certificate/key pair.
func NewTlsConfig(caFile, clientCertFile, clientKeyFile string) (*tls.Config, error) {
	certpool := x509.NewCertPool()
	ca, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("reading root CA %s: %w", caFile, err)
	}
	certpool.AppendCertsFromPEM(ca)
	cfg := &tls.Config{
		RootCAs:    certpool,
		MinVersion: tls.VersionTLS12,
	}
	if clientCertFile == "" && clientKeyFile == "" {
		return cfg, nil
	}
	clientKeyPair, err := tls.LoadX509KeyPair(clientCertFile, clientKeyFile)
	if err != nil {
		return nil, fmt.Errorf("tls.LoadX509KeyPair(%s,%s): %w", clientCertFile, clientKeyFile, err)
	}
	cfg.Certificates = []tls.Certificate{clientKeyPair}
	return cfg, nil
}

// NewPahoFactory returns a Factory producing backends on paho.mqtt.golang.
// tlsConfig is used for ssl/tls/mqtts/wss endpoints and may be nil.
func NewPahoFactory(tlsConfig *tls.Config) Factory {
	return func(endpoint, clientID string) (Backend, error) {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parsing endpoint: %w", err)
		}
		scheme := strings.ToLower(u.Scheme)
		if _, ok := secureSchemes[scheme]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
		}
		u.Scheme = scheme
		return &pahoBackend{
			endpoint:  u,
			clientID:  clientID,
			tlsConfig: tlsConfig,
		}, nil
	}
}

type pahoMessage struct {
	msg paho.Message
}

func (m pahoMessage) Topic() string {
	return m.msg.Topic()
}

func (m pahoMessage) PayloadBytes() []byte {
	return m.msg.Payload()
}

type pahoBackend struct {
	endpoint  *url.URL
	clientID  string
	tlsConfig *tls.Config

	mu        sync.RWMutex
	client    paho.Client
	onLost    func(error)
	onMessage func(RawMessage)
}

// brokerURL returns the endpoint, switched to its TLS scheme when useSSL is set.
func (b *pahoBackend) brokerURL(useSSL bool) string {
	u := *b.endpoint
	if useSSL {
		u.Scheme = secureSchemes[u.Scheme]
	}
	return u.String()
}

func (b *pahoBackend) Connect(opts ConnectOptions) error {
	o := paho.NewClientOptions()
	o.AddBroker(b.brokerURL(opts.UseSSL))
	o.SetClientID(b.clientID)
	if opts.Username != "" {
		o.SetUsername(opts.Username)
		o.SetPassword(opts.Password)
	}
	if opts.KeepAliveInterval > 0 {
		o.SetKeepAlive(opts.KeepAliveInterval)
	}
	if opts.Timeout > 0 {
		o.SetConnectTimeout(opts.Timeout)
	}
	if opts.MQTTVersion != 0 {
		o.SetProtocolVersion(opts.MQTTVersion)
	}
	o.SetCleanSession(opts.CleanSession)
	o.SetAutoReconnect(opts.Reconnect)
	if b.tlsConfig != nil {
		o.SetTLSConfig(b.tlsConfig)
	}
	o.SetConnectionLostHandler(func(_ paho.Client, err error) {
		b.mu.RLock()
		h := b.onLost
		b.mu.RUnlock()
		if h != nil {
			h(err)
		}
	})
	o.SetDefaultPublishHandler(func(_ paho.Client, msg paho.Message) {
		b.mu.RLock()
		h := b.onMessage
		b.mu.RUnlock()
		if h != nil {
			h(pahoMessage{msg: msg})
		}
	})

	client := paho.NewClient(o)
	b.mu.Lock()
	old := b.client
	b.client = client
	b.mu.Unlock()
	// a replaced client would keep reconnecting under the same client id.
	if old != nil {
		old.Disconnect(disconnectQuiesce)
	}
	track(client.Connect(), opts.Timeout, opts.OnSuccess, opts.OnFailure)
	return nil
}

func (b *pahoBackend) current() paho.Client {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.client
}

func (b *pahoBackend) Disconnect() {
	if client := b.current(); client != nil {
		client.Disconnect(disconnectQuiesce)
	}
}

func (b *pahoBackend) IsConnected() bool {
	client := b.current()
	return client != nil && client.IsConnectionOpen()
}

func (b *pahoBackend) Subscribe(filter string, opts SubscribeOptions) error {
	client := b.current()
	if client == nil || !client.IsConnectionOpen() {
		return ErrNotConnected
	}
	// nil callback routes deliveries to the default publish handler set in Connect.
	track(client.Subscribe(filter, byte(opts.QoS), nil), opts.Timeout, opts.OnSuccess, opts.OnFailure)
	return nil
}

func (b *pahoBackend) Publish(topic string, payload []byte, qos QoS, retained bool) error {
	client := b.current()
	if client == nil || !client.IsConnectionOpen() {
		return ErrNotConnected
	}
	token := client.Publish(topic, byte(qos), retained, payload)
	select {
	case <-token.Done():
		return token.Error()
	default:
		return nil
	}
}

func (b *pahoBackend) SetOnConnectionLost(handler func(reason error)) {
	b.mu.Lock()
	b.onLost = handler
	b.mu.Unlock()
}

func (b *pahoBackend) SetOnMessageArrived(handler func(msg RawMessage)) {
	b.mu.Lock()
	b.onMessage = handler
	b.mu.Unlock()
}

// track waits for token in the background and reports the outcome to the callbacks.
func track(token paho.Token, timeout time.Duration, onSuccess func(), onFailure func(error)) {
	go func() {
		if timeout > 0 {
			if !token.WaitTimeout(timeout) {
				if onFailure != nil {
					onFailure(ErrTimeout)
				}
				return
			}
		} else {
			token.Wait()
		}
		if err := token.Error(); err != nil {
			if onFailure != nil {
				onFailure(err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess()
		}
	}()
}
