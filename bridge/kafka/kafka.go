package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/celerway/gaugeboard/bridge/observability"
	"github.com/celerway/gaugeboard/log"
	gokafka "github.com/segmentio/kafka-go"
)

const (
	defaultBatchSize    = 10
	defaultMaxBatchSize = 100
	defaultInterval     = time.Second
	defaultRetry        = 10 * time.Second
)

func Initialize(p Params) *buffer {
	brokerAddr := gokafka.TCP(p.Broker + ":" + strconv.Itoa(p.Port))
	logger := log.NewWithPrefix(os.Stdout, os.Stderr, "[kafka]")
	logger.SetLevel(p.LogLevel)
	writer := &gokafka.Writer{
		Addr:         brokerAddr,
		Topic:        p.Topic,
		MaxAttempts:  10,
		BatchSize:    1,
		BatchTimeout: time.Millisecond * 20, // the buffer does the batching.
		RequiredAcks: gokafka.RequireAll,
		Async:        false,
		ErrorLogger:  logger.WithPrefix("[kafka-internal]"),
	}
	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	maxBatchSize := p.MaxBatchSize
	if maxBatchSize < batchSize {
		maxBatchSize = defaultMaxBatchSize
		if maxBatchSize < batchSize {
			maxBatchSize = batchSize
		}
	}
	interval := p.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	retry := p.RetryInterval
	if retry <= 0 {
		retry = defaultRetry
	}
	return &buffer{
		batchSize:            batchSize,
		interval:             interval,
		failureRetryInterval: retry,
		C:                    p.Channel,
		buffer:               make([]gokafka.Message, 0, batchSize),
		topic:                p.Topic,
		writer:               writer,
		maxBatchSize:         maxBatchSize,
		kafkaTimeout:         time.Second * 10,
		logger:               logger,
		obsChannel:           p.ObsChannel,
		testMessageTopic:     p.TestMessageTopic,
	}
}

// Run reads readings off the channel and writes them to the broker until ctx is cancelled.
// It fails early if the startup test message cannot be written.
func (k *buffer) Run(ctx context.Context) error {
	err := k.sendTestMessage()
	if err != nil {
		return fmt.Errorf("failed to send initial test message: %w", err)
	}
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()
	k.logger.Infof("Kafka export started with write interval %v and batch size %d", k.interval, k.batchSize)
loop:
	for {
		select {
		case <-ctx.Done():
			k.logger.Debug("context cancelled")
			break loop
		case <-ticker.C:
			if time.Since(k.lastSendAttempt) > k.interval {
				k.Send(false)
			}
		case m := <-k.C:
			k.logger.Trace("Reading received")
			k.Enqueue(m)
		}
	}
	k.logger.Info("Final flush of the buffer")
	k.Send(true)
	return nil
}

// Enqueue adds a reading to the buffer and flushes once a batch is full.
func (k *buffer) Enqueue(msg Message) {
	msgJson, err := json.Marshal(msg)
	if err != nil {
		k.logger.Errorf("Enqueue: marshal %s: %s", msg, err)
		return
	}
	k.buffer = append(k.buffer, gokafka.Message{
		Key:   []byte(msg.Gauge),
		Value: msgJson,
	})
	if len(k.buffer) >= k.batchSize {
		if k.failureState {
			return
		}
		k.logger.Debugf("Triggering flush (buffer is %d, batchSize is %d)", len(k.buffer), k.batchSize)
		k.Send(false)
		return
	}
	k.logger.Tracef("current buffer contains %d messages", len(k.buffer))
}

// Send writes the buffered readings. In a failed state it waits for the retry interval unless forced.
func (k *buffer) Send(force bool) {
	if len(k.buffer) == 0 {
		k.logger.Trace("buffer empty")
		return
	}
	if k.failureState && time.Since(k.lastSendAttempt) < k.failureRetryInterval && !force {
		k.logger.Tracef("In a failed state. Not time to retry yet (%v of %v)",
			time.Since(k.lastSendAttempt), k.failureRetryInterval)
		return
	}
	defer k.updateLastSendAttempt() // even if we fail.
	start := time.Now()
	msgs := len(k.buffer)
	var err error
	if msgs <= k.maxBatchSize {
		err = k.sendAll()
	} else {
		err = k.sendBatched()
	}
	if err != nil {
		k.failures++
		k.logger.Warnf("Send: %s (buffered msgs: %d time taken: %v, failures: %d)",
			err, msgs, time.Since(start), k.failures)
		k.failureState = true
		return
	}
	k.logger.Debugf("Send: Wrote %d messages in %v", msgs, time.Since(start))
	k.failureState = false
}

func (k *buffer) sendAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), k.kafkaTimeout)
	defer cancel()
	if err := k.writer.WriteMessages(ctx, k.buffer...); err != nil {
		k.obsChannel.Notify(observability.KafkaError)
		return err
	}
	k.obsChannel.Notify(observability.KafkaSent)
	k.buffer = k.buffer[:0]
	return nil
}

// sendBatched writes the buffer in chunks of maxBatchSize. Chunks written before a failure are dropped from the buffer.
func (k *buffer) sendBatched() error {
	batches := (len(k.buffer) + k.maxBatchSize - 1) / k.maxBatchSize
	ctx, cancel := context.WithTimeout(context.Background(), k.kafkaTimeout*time.Duration(batches))
	defer cancel()
	for batch := 1; len(k.buffer) > 0; batch++ {
		n := len(k.buffer)
		if n > k.maxBatchSize {
			n = k.maxBatchSize
		}
		k.logger.Tracef("sending batch %d (%d messages)", batch, n)
		if err := k.writer.WriteMessages(ctx, k.buffer[:n]...); err != nil {
			k.obsChannel.Notify(observability.KafkaError)
			return fmt.Errorf("batch %d: %w", batch, err)
		}
		k.buffer = k.buffer[n:]
		k.obsChannel.Notify(observability.KafkaSent)
	}
	return nil
}

// sendTestMessage writes a reading flagged as a test. Consumers should skip these.
func (k *buffer) sendTestMessage() error {
	ctx, cancel := context.WithTimeout(context.Background(), k.kafkaTimeout)
	defer cancel()
	msg, err := generateTestMessage(k.testMessageTopic)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("error sending test message on topic '%s': %w", k.testMessageTopic, err)
	}
	return nil
}

func (k *buffer) updateLastSendAttempt() {
	k.lastSendAttempt = time.Now()
}

func generateTestMessage(topic string) (gokafka.Message, error) {
	msgJson, err := json.Marshal(Message{
		Topic: topic,
		Time:  time.Now(),
		Test:  true,
	})
	if err != nil {
		return gokafka.Message{}, fmt.Errorf("marshalling test message: %w", err)
	}
	return gokafka.Message{Value: msgJson}, nil
}
