package observability

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	is2 "github.com/matryer/is"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

type metricsMap map[string]float64

var metricNames = []string{
	"mqtt_received", "mqtt_errors", "mqtt_state", "mqtt_unmatched",
	"charts_rendered", "chart_errors",
	"kafka_sent", "kafka_errors", "kafka_state",
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func Test_observability_Run(t *testing.T) {
	is := is2.New(t)
	port := freePort(t)
	ch := make(Channel)
	obs := Initialize(Params{
		Channel:    ch,
		HealthPort: port,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		obs.Run(ctx)
	}()
	var metrics metricsMap
	var err error
	for i := 0; i < 100; i++ {
		metrics, err = getMetrics(port)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	is.NoErr(err)
	for _, name := range metricNames {
		is.Equal(metrics[name], float64(0))
	}
	// an error flips kafka_state to 1, a successful send flips it back.
	ch <- KafkaError
	is.NoErr(waitForMetric(port, "kafka_state", 1))
	is.NoErr(waitForMetric(port, "kafka_errors", 1))
	ch <- KafkaSent
	is.NoErr(waitForMetric(port, "kafka_state", 0))
	is.NoErr(waitForMetric(port, "kafka_sent", 1))
	ch <- MqttReceived
	is.NoErr(waitForMetric(port, "mqtt_received", 1))
	ch <- MqttError
	is.NoErr(waitForMetric(port, "mqtt_errors", 1))
	ch <- ChartRendered
	ch <- ChartRendered
	is.NoErr(waitForMetric(port, "charts_rendered", 2))
	ch <- ChartError
	is.NoErr(waitForMetric(port, "chart_errors", 1))
	ch <- Unmatched
	is.NoErr(waitForMetric(port, "mqtt_unmatched", 1))
	ch <- MqttConnected
	is.NoErr(waitForMetric(port, "mqtt_state", 1))
	cancel()
	wg.Wait()
}

func Test_Healthz(t *testing.T) {
	is := is2.New(t)
	obs := Initialize(Params{Channel: GetChannel(1)})
	router := obs.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	is.Equal(rec.Code, http.StatusLocked)
	is.Equal(rec.Body.String(), "not ready")

	obs.handleChannelMessage(MqttConnected)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(rec.Body.String(), "ok")

	obs.handleChannelMessage(MqttDisconnected)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	is.Equal(rec.Code, http.StatusLocked)
}

func Test_ExtraRoutes(t *testing.T) {
	is := is2.New(t)
	obs := Initialize(Params{
		Routes: func(r *mux.Router) {
			r.HandleFunc("/api/ping", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("pong"))
			})
		},
	})
	rec := httptest.NewRecorder()
	obs.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(rec.Body.String(), "pong")
}

func Test_Notify(t *testing.T) {
	is := is2.New(t)
	ch := GetChannel(1)
	ch.Notify(KafkaSent)
	ch.Notify(KafkaError) // full, dropped
	is.Equal(len(ch), 1)
	is.Equal(<-ch, KafkaSent)
	var none Channel
	none.Notify(KafkaSent) // nil channel is a no-op
	is.Equal(StatusMessage(42).String(), "Unknown")
	is.Equal(ChartRendered.String(), "ChartRendered")
}

func waitForMetric(port int, name string, want float64) error {
	var last float64
	for i := 0; i < 100; i++ {
		metrics, err := getMetrics(port)
		if err != nil {
			return err
		}
		last = metrics[name]
		if last == want {
			return nil
		}
		time.Sleep(5 * time.Millisecond)
	}
	return fmt.Errorf("metric %s is %v, want %v", name, last, want)
}

// getMetrics fetches the metrics from the /metrics endpoint and returns a map of metric name to value.
func getMetrics(port int) (metricsMap, error) {
	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/metrics", port))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	promMetrics, err := parseMF(resp.Body)
	if err != nil {
		return nil, err
	}
	metrics := make(metricsMap)
	for k, v := range promMetrics {
		switch v.GetType() {
		case dto.MetricType_GAUGE:
			metrics[k] = v.Metric[0].GetGauge().GetValue()
		case dto.MetricType_COUNTER:
			metrics[k] = v.Metric[0].GetCounter().GetValue()
		}
	}
	return metrics, nil
}

func parseMF(reader io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	return parser.TextToMetricFamilies(reader)
}
