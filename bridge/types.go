package bridge

import (
	"time"

	"github.com/celerway/gaugeboard/adapter/chart"
	"github.com/celerway/gaugeboard/adapter/mqtt"
	"github.com/celerway/gaugeboard/bridge/kafka"
	"github.com/celerway/gaugeboard/bridge/observability"
	"github.com/celerway/gaugeboard/log"
)

type Params struct {
	MqttBroker         string
	MqttTls            bool
	MqttPort           int
	TlsRootCrtFile     string
	MqttClientCertFile string
	MqttClientKeyFile  string
	MqttClientId       string
	MqttUser           string
	MqttPassword       string
	// MqttTopic overrides the subscriptions derived from the gauge layout.
	MqttTopic string
	// MqttFactory replaces the paho backend, mostly for tests.
	MqttFactory mqtt.Factory

	GaugeFile string
	// Layout is used instead of GaugeFile when set.
	Layout *Layout

	HealthPort int

	KafkaBroker        string
	KafkaPort          int
	KafkaTopic         string
	KafkaBatchSize     int
	KafkaMaxBatchSize  int
	KafkaInterval      time.Duration
	KafkaRetryInterval time.Duration
	KafkaTestTopic     string

	LogLevel log.LogLevel
	// Logger is the parent of the bridge, mqtt and chart loggers. Defaults to log.Default().
	Logger *log.Logger
}

type renderJob struct {
	req      chart.Request
	isUpdate bool
	result   chan error
}

type bridge struct {
	params   Params
	client   *mqtt.Client
	page     *chart.Page
	host     *chart.Host
	renderer *chart.Renderer
	gauges   []*gauge
	filters  []string
	ch       chan mqtt.Message
	renderCh chan renderJob
	obsCh    observability.Channel
	kafkaCh  chan kafka.Message
	// connected is only touched by the main loop.
	connected bool
	logger    *log.Logger
}
