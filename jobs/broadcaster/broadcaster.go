// Package broadcaster drains the trade outbox to Kafka. Delivery is
// at-least-once: entries move NEW -> SENT -> ACKED, and anything not
// acked is retried on the next tick.
package broadcaster

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"vega/tradestore"
)

type Broadcaster struct {
	store    *tradestore.Store
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *zap.Logger
}

func New(
	store *tradestore.Store,
	brokers []string,
	topic string,
	interval time.Duration,
	log *zap.Logger,
) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Broadcaster{
		store:    store,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
	}, nil
}

// Start runs the drain loop until ctx is cancelled.
func (b *Broadcaster) Start(ctx context.Context) {
	b.log.Info("broadcaster started", zap.String("topic", b.topic))
	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.drainOnce()
			}
		}
	}()
}

func (b *Broadcaster) drainOnce() {
	var acked uint64
	err := b.store.ScanPending(func(e tradestore.Entry) error {
		// Mark SENT before the send so a crash re-sends, never drops.
		if err := b.store.MarkSent(e.Seq); err != nil {
			return err
		}
		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Value: sarama.ByteEncoder(e.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.Warn("trade publish failed, will retry",
				zap.Uint64("seq", e.Seq), zap.Error(err))
			return nil
		}
		if err := b.store.MarkAcked(e.Seq); err != nil {
			return err
		}
		acked = e.Seq
		return nil
	})
	if err != nil {
		b.log.Error("outbox scan failed", zap.Error(err))
		return
	}
	if acked > 0 {
		_ = b.store.DeleteAckedUpTo(acked)
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
