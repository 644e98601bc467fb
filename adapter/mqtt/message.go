package mqtt

import "fmt"

// Message is a read-only view over an inbound message.
type Message struct {
	raw RawMessage
}

func NewMessage(raw RawMessage) Message {
	return Message{raw: raw}
}

func (m Message) Topic() string {
	return m.raw.Topic()
}

func (m Message) PayloadBytes() []byte {
	return m.raw.PayloadBytes()
}

func (m Message) String() string {
	return fmt.Sprintf("Topic: %s, payload %d bytes", m.Topic(), len(m.PayloadBytes()))
}
