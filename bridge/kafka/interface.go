package kafka

import (
	"context"

	gokafka "github.com/segmentio/kafka-go"
)

// Writer is the part of *gokafka.Writer the buffer uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...gokafka.Message) error
}
