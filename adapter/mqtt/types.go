package mqtt

import (
	"time"
)

type QoS byte

const (
	QoS0 QoS = iota
	QoS1
	QoS2
)

// RawMessage is an inbound message as the backend library delivers it.
type RawMessage interface {
	Topic() string
	PayloadBytes() []byte
}

// Backend is the MQTT library the Client forwards to.
type Backend interface {
	Connect(opts ConnectOptions) error
	Disconnect()
	IsConnected() bool
	Subscribe(filter string, opts SubscribeOptions) error
	Publish(topic string, payload []byte, qos QoS, retained bool) error
	SetOnConnectionLost(handler func(reason error))
	SetOnMessageArrived(handler func(msg RawMessage))
}

// Factory creates a backend for an endpoint and client id.
type Factory func(endpoint, clientID string) (Backend, error)

// ConnectOptions is the options bag passed verbatim to Backend.Connect.
type ConnectOptions struct {
	Username          string
	Password          string
	KeepAliveInterval time.Duration
	CleanSession      bool
	Reconnect         bool
	Timeout           time.Duration
	UseSSL            bool
	MQTTVersion       uint
	OnSuccess         func()
	OnFailure         func(err error)
}

func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		CleanSession: true,
		Reconnect:    true,
		MQTTVersion:  4,
	}
}

type SubscribeOptions struct {
	QoS       QoS
	Timeout   time.Duration
	OnSuccess func()
	OnFailure func(err error)
}

type ConnectionLostHandler func(reason error)

type MessageHandler func(msg Message)

// Unregister removes a handler installed with SetOnConnectionLost or SetOnMessageArrived.
type Unregister func()
