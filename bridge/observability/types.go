package observability

import (
	"sync/atomic"

	"github.com/celerway/gaugeboard/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

type Channel chan StatusMessage

type StatusMessage int

const (
	MqttReceived StatusMessage = iota
	MqttError
	MqttConnected
	MqttDisconnected
	ChartRendered
	ChartError
	Unmatched
	KafkaSent
	KafkaError
)

func (d StatusMessage) String() string {
	names := [...]string{"MqttReceived", "MqttError", "MqttConnected", "MqttDisconnected",
		"ChartRendered", "ChartError", "Unmatched", "KafkaSent", "KafkaError"}
	if d < 0 || int(d) >= len(names) {
		return "Unknown"
	}
	return names[d]
}

type Params struct {
	Channel    Channel
	HealthPort int
	// Routes lets the caller mount extra handlers on the same server.
	Routes func(r *mux.Router)
}

type observability struct {
	channel        Channel
	logger         *log.Logger
	healthPort     int
	routes         func(r *mux.Router)
	promReg        *prometheus.Registry
	ready          atomic.Bool
	mqttReceived   prometheus.Counter
	mqttErrors     prometheus.Counter
	mqttState      prometheus.Gauge
	chartsRendered prometheus.Counter
	chartErrors    prometheus.Counter
	unmatched      prometheus.Counter
	kafkaSent      prometheus.Counter
	kafkaErrors    prometheus.Counter
	kafkaState     prometheus.Gauge
}
