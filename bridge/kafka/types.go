package kafka

import (
	"fmt"
	"time"

	"github.com/celerway/gaugeboard/bridge/observability"
	"github.com/celerway/gaugeboard/log"
	gokafka "github.com/segmentio/kafka-go"
)

// Message is one gauge reading as exported to Kafka.
type Message struct {
	Gauge string    `json:"gauge"`
	Topic string    `json:"topic"`
	Value float64   `json:"value"`
	Unit  string    `json:"unit,omitempty"`
	Time  time.Time `json:"time"`
	Test  bool      `json:"test,omitempty"`
}

func (msg Message) String() string {
	return fmt.Sprintf("Gauge: %s, topic: %s, value: %g%s", msg.Gauge, msg.Topic, msg.Value, msg.Unit)
}

type Params struct {
	Broker           string
	Port             int
	Topic            string
	Channel          chan Message
	ObsChannel       observability.Channel
	BatchSize        int
	MaxBatchSize     int
	Interval         time.Duration
	RetryInterval    time.Duration
	TestMessageTopic string
	LogLevel         log.LogLevel
}

type buffer struct {
	batchSize            int
	maxBatchSize         int
	interval             time.Duration
	failureState         bool
	failureRetryInterval time.Duration
	C                    chan Message
	buffer               []gokafka.Message
	topic                string
	writer               Writer
	kafkaTimeout         time.Duration
	logger               *log.Logger
	obsChannel           observability.Channel
	testMessageTopic     string
	failures             int
	lastSendAttempt      time.Time
}
