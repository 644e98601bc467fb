package bridge

import (
	"context"
	"time"

	"github.com/celerway/gaugeboard/adapter/chart"
	"github.com/celerway/gaugeboard/adapter/mqtt"
	"github.com/celerway/gaugeboard/bridge/kafka"
	"github.com/celerway/gaugeboard/bridge/observability"
)

const connectionCheckInterval = 2 * time.Second

// mainloop serialises everything that touches the charts.
func (br *bridge) mainloop(ctx context.Context) {
	br.logger.Debug("Main loop running")
	ticker := time.NewTicker(connectionCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			br.logger.Debug("Main loop exiting")
			return
		case msg := <-br.ch:
			br.handleMessage(msg)
		case job := <-br.renderCh:
			job.result <- br.render(job.req, job.isUpdate)
		case <-ticker.C:
			br.checkConnection()
		}
	}
}

func (br *bridge) handleMessage(msg mqtt.Message) {
	br.logger.Tracef("Received %s", msg)
	br.obsCh.Notify(observability.MqttReceived)
	matched := false
	for _, g := range br.gauges {
		if !g.matches(msg.Topic()) {
			continue
		}
		matched = true
		v, err := g.value(msg.PayloadBytes())
		if err != nil {
			br.logger.Warnf("Gauge %s: topic %s: %s", g.spec.ID, msg.Topic(), err)
			br.obsCh.Notify(observability.MqttError)
			continue
		}
		_, exists := br.host.Get(g.spec.ID)
		if err := br.render(g.request(v), exists); err != nil {
			continue
		}
		br.export(g, msg.Topic(), v)
	}
	if !matched {
		br.logger.Debugf("No gauge for topic %s, dropping", msg.Topic())
		br.obsCh.Notify(observability.Unmatched)
	}
}

func (br *bridge) render(req chart.Request, isUpdate bool) error {
	if err := br.renderer.Render(req, isUpdate); err != nil {
		br.logger.Errorf("Render %s: %s", req.ID, err)
		br.obsCh.Notify(observability.ChartError)
		return err
	}
	br.obsCh.Notify(observability.ChartRendered)
	return nil
}

// export hands a reading to the kafka buffer. Readings are dropped when it is behind.
func (br *bridge) export(g *gauge, topic string, v float64) {
	if br.kafkaCh == nil {
		return
	}
	msg := kafka.Message{
		Gauge: g.spec.ID,
		Topic: topic,
		Value: v,
		Unit:  g.spec.Unit,
		Time:  time.Now().UTC(),
	}
	select {
	case br.kafkaCh <- msg:
	default:
		br.logger.Warnf("Kafka export is behind, dropping reading for %s", g.spec.ID)
	}
}

// submit runs a render on the main loop and waits for the result.
func (br *bridge) submit(ctx context.Context, req chart.Request, isUpdate bool) error {
	job := renderJob{req: req, isUpdate: isUpdate, result: make(chan error, 1)}
	select {
	case br.renderCh <- job:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-job.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (br *bridge) checkConnection() {
	connected := br.client.Connected()
	if connected == br.connected {
		return
	}
	br.connected = connected
	if connected {
		br.logger.Info("MQTT connection is up")
		br.obsCh.Notify(observability.MqttConnected)
	} else {
		br.logger.Warn("MQTT connection is down")
		br.obsCh.Notify(observability.MqttDisconnected)
	}
}
