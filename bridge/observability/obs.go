package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/celerway/gaugeboard/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (obs *observability) Run(ctx context.Context) {
	obs.logger.Debug("Observability worker is running")
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		obs.runHttpServer(ctx) // will return when context is cancelled.
	}()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case msg := <-obs.channel:
			obs.handleChannelMessage(msg)
		}
	}
	wg.Wait()
	obs.Cleanup()
	obs.logger.Info("Observability worker is done")
}

func Initialize(params Params) *observability {
	reg := prometheus.NewRegistry()
	obs := &observability{
		channel:    params.Channel,
		logger:     log.Default().WithPrefix("[observability]"),
		healthPort: params.HealthPort,
		routes:     params.Routes,
		promReg:    reg,
	}

	obs.mqttReceived = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "mqtt_received",
		Help: "Number of received MQTT messages",
	})
	obs.mqttErrors = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "mqtt_errors",
		Help: "Number of MQTT messages that could not be turned into a reading",
	})
	obs.mqttState = promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Name: "mqtt_state",
		Help: "MQTT connection status (1 is connected)",
	})
	obs.chartsRendered = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "charts_rendered",
		Help: "Number of successful chart renders",
	})
	obs.chartErrors = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "chart_errors",
		Help: "Number of failed chart renders",
	})
	obs.unmatched = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "mqtt_unmatched",
		Help: "Number of MQTT messages on topics without a gauge",
	})
	obs.kafkaSent = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "kafka_sent",
		Help: "Number of batches sent to kafka",
	})
	obs.kafkaErrors = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "kafka_errors",
		Help: "No of errors encountered with Kafka",
	})
	obs.kafkaState = promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Name: "kafka_state",
		Help: "Kafka status (0 is OK)",
	})
	return obs // Return the struct so the bridge can adjust the health status.
}

// Router returns the handler tree served on the health port.
func (obs *observability) Router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.Handle("/metrics", promhttp.HandlerFor(obs.promReg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", obs.HealthzHandler).Methods(http.MethodGet)
	if obs.routes != nil {
		obs.routes(router)
	}
	return router
}

// runHttpServer starts the http server that serves the healthz and metrics endpoints.
// It blocks until the context is cancelled.
func (obs *observability) runHttpServer(ctx context.Context) {
	listenPort := fmt.Sprintf(":%d", obs.healthPort)
	obs.logger.Infof("Observability service attempting to listen to port %s", listenPort)
	srv := &http.Server{
		Addr:              listenPort,
		Handler:           obs.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			obs.logger.Errorf("Observability service: %s", err)
		}
	}()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		obs.logger.Errorf("Observability service shutdown error: %s", err)
	}
	wg.Wait()
}

func (obs *observability) Cleanup() {
	obs.logger.Debug("De-registering prometheus counters")
	for _, c := range []prometheus.Collector{
		obs.mqttReceived, obs.mqttErrors, obs.mqttState,
		obs.chartsRendered, obs.chartErrors, obs.unmatched,
		obs.kafkaSent, obs.kafkaErrors, obs.kafkaState,
	} {
		obs.promReg.Unregister(c)
	}
}

func (obs *observability) handleChannelMessage(msg StatusMessage) {
	obs.logger.Tracef("Observability received %s", msg)

	switch msg {
	case MqttReceived:
		obs.mqttReceived.Inc()
	case MqttError:
		obs.mqttErrors.Inc()
	case MqttConnected:
		obs.mqttState.Set(1)
		obs.Ready()
	case MqttDisconnected:
		obs.mqttState.Set(0)
		obs.ready.Store(false)
	case ChartRendered:
		obs.chartsRendered.Inc()
	case ChartError:
		obs.chartErrors.Inc()
	case Unmatched:
		obs.unmatched.Inc()
	case KafkaSent:
		obs.kafkaSent.Inc()
		obs.kafkaState.Set(0)
	case KafkaError:
		obs.kafkaErrors.Inc()
		obs.kafkaState.Set(1)
	default:
		obs.logger.Errorf("Observability: Unknown message received: %d", int(msg))
	}
}

func GetChannel(size int) Channel {
	return make(Channel, size)
}

// Notify queues msg without blocking. Messages are dropped when the channel is full.
func (c Channel) Notify(msg StatusMessage) {
	if c == nil {
		return
	}
	select {
	case c <- msg:
	default:
	}
}

func (obs *observability) HealthzHandler(w http.ResponseWriter, _ *http.Request) {
	if obs.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	} else {
		w.WriteHeader(http.StatusLocked)
		_, _ = w.Write([]byte("not ready"))
	}
}

func (obs *observability) Ready() {
	obs.ready.Store(true)
}
