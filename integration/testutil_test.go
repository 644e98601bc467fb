package integration

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/celerway/gaugeboard/bridge"
	"github.com/celerway/gaugeboard/log"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/prometheus/common/expfmt"
)

type reading struct {
	Id    int     `json:"id"`
	Value float64 `json:"value"`
}

func verifyCounter(t *testing.T, name string, value float64, expected int) {
	t.Helper()
	if int(value) != expected {
		t.Errorf("Observed counter %s mismatch, expected %d, got %d (%f)",
			name, expected, int(value), value)
	}
}

func getMetrics(port int) (map[string]float64, error) {
	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/metrics", port))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var parser expfmt.TextParser
	mf, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for name, fam := range mf {
		m := fam.Metric[0]
		switch {
		case m.Counter != nil:
			out[name] = m.GetCounter().GetValue()
		case m.Gauge != nil:
			out[name] = m.GetGauge().GetValue()
		}
	}
	return out, nil
}

func verifyObsdata(t *testing.T, port, received, rendered, mqttErrors, unmatched int) {
	t.Helper()
	metrics, err := getMetrics(port)
	if err != nil {
		t.Fatalf("Could not get metrics: %s", err)
	}
	verifyCounter(t, "mqtt_received", metrics["mqtt_received"], received)
	verifyCounter(t, "charts_rendered", metrics["charts_rendered"], rendered)
	verifyCounter(t, "mqtt_errors", metrics["mqtt_errors"], mqttErrors)
	verifyCounter(t, "mqtt_unmatched", metrics["mqtt_unmatched"], unmatched)
	verifyCounter(t, "chart_errors", metrics["chart_errors"], 0)
}

// waitForMetric polls /metrics until name reaches want.
func waitForMetric(t *testing.T, port int, name string, want float64) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	var last float64
	for time.Now().Before(deadline) {
		metrics, err := getMetrics(port)
		if err == nil {
			last = metrics[name]
			if last >= want {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("metric %s stuck at %v, want %v", name, last, want)
}

// waitForHealth polls /healthz until it returns the given status.
func waitForHealth(t *testing.T, port, status int) {
	t.Helper()
	url := fmt.Sprintf("http://localhost:%d/healthz", port)
	log.Debugf("Waiting for %s to return %d", url, status)
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == status {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("%s did not return %d in time", url, status)
}

func getFreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %s", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func getRandomString(length int) string {
	var letters = []rune("0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	b := make([]rune, length)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

// startBroker runs an in-process broker. The returned stop func may be called more than once.
func startBroker(t *testing.T) (func(), int) {
	t.Helper()
	port := getFreePort(t)
	server := mochi.New(&mochi.Options{InlineClient: true})
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		t.Fatalf("adding allow hook: %v", err)
	}
	tcp := listeners.NewTCP(listeners.Config{ID: "integration", Address: fmt.Sprintf("127.0.0.1:%d", port)})
	if err := server.AddListener(tcp); err != nil {
		t.Fatalf("adding listener: %v", err)
	}
	go func() {
		_ = server.Serve()
	}()
	var once sync.Once
	stop := func() {
		once.Do(func() { _ = server.Close() })
	}
	t.Cleanup(stop)
	time.Sleep(50 * time.Millisecond)
	return stop, port
}

func makeConfig(mqttPort, healthPort int, prefix string) bridge.Params {
	layout := bridge.Layout{Gauges: []bridge.GaugeSpec{{
		ID:    "load",
		Topic: prefix + "/load",
		Title: "Load",
		Unit:  "%",
		Path:  "$.value",
	}}}
	return bridge.Params{
		MqttBroker: "127.0.0.1",
		MqttPort:   mqttPort,
		MqttTopic:  prefix + "/#",
		Layout:     &layout,
		HealthPort: healthPort,
		LogLevel:   log.InfoLevel,
	}
}

func getMqttClient(t *testing.T, port int) mqtt.Client {
	t.Helper()
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://127.0.0.1:%d", port))
	opts.SetClientID("integration-publisher-" + getRandomString(6))
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		t.Fatalf("connecting publisher: %s", token.Error())
	}
	t.Cleanup(func() { client.Disconnect(100) })
	return client
}

func publish(t *testing.T, client mqtt.Client, topic string, payload []byte) {
	t.Helper()
	token := client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("publishing on %s: %v", topic, token.Error())
	}
}

func publishReadings(t *testing.T, client mqtt.Client, topic string, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		payload, err := json.Marshal(reading{Id: i, Value: float64(i % 100)})
		if err != nil {
			t.Fatalf("While making message: %s", err)
		}
		publish(t, client, topic, payload)
		log.Tracef("Published reading %d on MQTT", i)
	}
}
