package bridge

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/celerway/gaugeboard/adapter/chart"
	"github.com/celerway/gaugeboard/adapter/mqtt"
	"github.com/celerway/gaugeboard/bridge/kafka"
	"github.com/celerway/gaugeboard/bridge/observability"
	"github.com/celerway/gaugeboard/log"
)

const (
	mqttKeepAlive      = 30 * time.Second
	mqttConnectTimeout = 10 * time.Second
	kafkaBufferSize    = 1000
	obsBufferSize      = 1024
)

// Run starts the dashboard and blocks until SIGINT or SIGTERM.
func Run(params Params) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err := RunContext(ctx, params)
	log.Infof("Program exiting. There are currently %d goroutines", runtime.NumGoroutine())
	return err
}

// RunContext runs the dashboard until ctx is cancelled.
func RunContext(ctx context.Context, params Params) error {
	br, err := initialize(params)
	if err != nil {
		return err
	}
	return br.run(ctx)
}

func initialize(params Params) (*bridge, error) {
	layout, err := loadLayout(params)
	if err != nil {
		return nil, err
	}
	root := params.Logger
	if root == nil {
		root = log.Default()
	}
	br := &bridge{
		params:   params,
		page:     chart.NewPage(),
		host:     chart.NewHost(),
		ch:       make(chan mqtt.Message),
		renderCh: make(chan renderJob),
		obsCh:    observability.GetChannel(obsBufferSize),
		logger:   root.WithPrefix("[bridge]"),
	}
	br.host.Register(chart.NewCenterText())
	br.renderer = chart.NewRenderer(br.page, br.host)
	br.renderer.SetLogger(root.WithPrefix("[chart]"))
	for _, spec := range layout.Gauges {
		g, err := compileGauge(spec)
		if err != nil {
			return nil, err
		}
		br.gauges = append(br.gauges, g)
		br.page.Mount(spec.ID, spec.Width, spec.Height)
	}
	br.filters = layout.Filters()
	if params.MqttTopic != "" {
		br.filters = []string{params.MqttTopic}
	}
	if len(br.filters) == 0 {
		return nil, fmt.Errorf("nothing to subscribe to: no gauges and no topic given")
	}
	if params.KafkaBroker != "" {
		br.kafkaCh = make(chan kafka.Message, kafkaBufferSize)
	}

	factory := params.MqttFactory
	if factory == nil {
		var tlsConfig *tls.Config
		if params.MqttTls {
			tlsConfig, err = mqtt.NewTlsConfig(params.TlsRootCrtFile, params.MqttClientCertFile, params.MqttClientKeyFile)
			if err != nil {
				return nil, err
			}
		}
		factory = mqtt.NewPahoFactory(tlsConfig)
	}
	br.client, err = mqtt.New(factory, brokerEndpoint(params), params.MqttClientId)
	if err != nil {
		return nil, err
	}
	br.client.SetLogger(root.WithPrefix("[mqtt]"))
	br.logger.Infof("Bridge initialized with %d gauges, subscribing to %v", len(br.gauges), br.filters)
	return br, nil
}

func loadLayout(params Params) (Layout, error) {
	if params.Layout != nil {
		// copy so the caller's layout is left untouched
		l := Layout{Gauges: append([]GaugeSpec(nil), params.Layout.Gauges...)}
		if err := l.normalize(); err != nil {
			return Layout{}, err
		}
		return l, nil
	}
	if params.GaugeFile == "" {
		return Layout{}, nil
	}
	return LoadLayout(params.GaugeFile)
}

func brokerEndpoint(params Params) string {
	scheme := "tcp"
	if params.MqttTls {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, params.MqttBroker, params.MqttPort)
}

// run connects to the broker and runs the workers until ctx is cancelled.
func (br *bridge) run(ctx context.Context) error {
	var wg sync.WaitGroup
	obs := observability.Initialize(observability.Params{
		Channel:    br.obsCh,
		HealthPort: br.params.HealthPort,
		Routes:     br.routes,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		obs.Run(ctx)
	}()

	if br.kafkaCh != nil {
		buf := kafka.Initialize(kafka.Params{
			Broker:           br.params.KafkaBroker,
			Port:             br.params.KafkaPort,
			Topic:            br.params.KafkaTopic,
			Channel:          br.kafkaCh,
			ObsChannel:       br.obsCh,
			BatchSize:        br.params.KafkaBatchSize,
			MaxBatchSize:     br.params.KafkaMaxBatchSize,
			Interval:         br.params.KafkaInterval,
			RetryInterval:    br.params.KafkaRetryInterval,
			TestMessageTopic: br.params.KafkaTestTopic,
			LogLevel:         br.params.LogLevel,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := buf.Run(ctx); err != nil {
				br.logger.Errorf("Kafka export disabled: %s", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		br.mainloop(ctx)
	}()

	unregisterMsg := br.client.SetOnMessageArrived(func(msg mqtt.Message) {
		select {
		case br.ch <- msg:
		case <-ctx.Done():
		}
	})
	unregisterLost := br.client.SetOnConnectionLost(func(reason error) {
		br.logger.Warnf("MQTT connection lost: %s", reason)
		br.obsCh.Notify(observability.MqttDisconnected)
	})
	defer unregisterMsg()
	defer unregisterLost()

	opts := mqtt.DefaultConnectOptions()
	opts.Username = br.params.MqttUser
	opts.Password = br.params.MqttPassword
	opts.KeepAliveInterval = mqttKeepAlive
	opts.Timeout = mqttConnectTimeout
	opts.CleanSession = false // keep subscriptions across reconnects
	opts.UseSSL = br.params.MqttTls
	opts.OnSuccess = func() {
		br.logger.Infof("Connected to %s as %s", br.client.Endpoint(), br.client.ClientID())
		br.subscribe()
	}
	opts.OnFailure = func(err error) {
		br.logger.Errorf("Connecting to %s: %s", br.client.Endpoint(), err)
		br.obsCh.Notify(observability.MqttDisconnected)
	}
	if err := br.client.Connect(opts); err != nil {
		br.logger.Errorf("Connect: %s", err)
	}

	<-ctx.Done()
	br.logger.Info("Shutting down, disconnecting from MQTT")
	br.client.Disconnect()
	wg.Wait()
	return nil
}

func (br *bridge) subscribe() {
	for _, filter := range br.filters {
		filter := filter
		err := br.client.Subscribe(filter, mqtt.SubscribeOptions{
			QoS:     mqtt.QoS1,
			Timeout: mqttConnectTimeout,
			OnSuccess: func() {
				br.logger.Debugf("Subscribed to %s", filter)
				br.obsCh.Notify(observability.MqttConnected)
			},
			OnFailure: func(err error) {
				br.logger.Errorf("Subscribe %s: %s", filter, err)
			},
		})
		if err != nil {
			br.logger.Errorf("Subscribe %s: %s", filter, err)
		}
	}
}
