package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"storefront-svc/config"
	"storefront-svc/models"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProductEvictor drops cached product entries whose stock has changed.
type ProductEvictor interface {
	DeleteProduct(ctx context.Context, id string) error
}

func InitConsumer(cfg config.KafkaConfig, logger *zap.Logger) (sarama.Consumer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Return.Errors = true

	consumer, err := sarama.NewConsumer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Info("Kafka consumer initialized")
	return consumer, nil
}

// StartConsumer reads every partition of topic from the newest offset and evicts
// cached products named by order_placed events. It returns when ctx is done.
func StartConsumer(ctx context.Context, consumer sarama.Consumer, topic string, evictor ProductEvictor, logger *zap.Logger) error {
	partitions, err := consumer.Partitions(topic)
	if err != nil {
		return fmt.Errorf("failed to list partitions: %w", err)
	}

	var wg sync.WaitGroup
	for _, partition := range partitions {
		pc, err := consumer.ConsumePartition(topic, partition, sarama.OffsetNewest)
		if err != nil {
			return fmt.Errorf("failed to consume partition %d: %w", partition, err)
		}

		wg.Add(1)
		go func(pc sarama.PartitionConsumer) {
			defer wg.Done()
			defer pc.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case message, ok := <-pc.Messages():
					if !ok {
						return
					}
					if err := handleMessage(ctx, message, evictor, logger); err != nil {
						logger.Error("Failed to handle message", zap.Error(err))
					}
				case err, ok := <-pc.Errors():
					if !ok {
						return
					}
					logger.Error("Kafka consumer error", zap.Error(err))
				}
			}
		}(pc)
	}

	logger.Info("Kafka consumer started", zap.String("topic", topic), zap.Int("partitions", len(partitions)))
	wg.Wait()
	return nil
}

func handleMessage(ctx context.Context, message *sarama.ConsumerMessage, evictor ProductEvictor, logger *zap.Logger) error {
	// Extract trace context from Kafka message headers
	ctx = otel.GetTextMapPropagator().Extract(ctx, saramaHeaderCarrierConsumer(message.Headers))
	ctx, span := otel.Tracer("storefront-service/kafka").Start(ctx, "ProcessOrderEvent")
	defer span.End()

	var event models.OrderEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	span.SetAttributes(
		attribute.String("event.type", event.EventType),
		attribute.String("order.id", event.OrderID),
	)

	traceID := ""
	if span.SpanContext().IsValid() {
		traceID = span.SpanContext().TraceID().String()
	}
	logger.Info("Received event",
		zap.String("trace_id", traceID),
		zap.String("event_type", event.EventType),
		zap.String("order_id", event.OrderID),
	)

	if event.EventType != models.EventOrderPlaced {
		return nil
	}

	var errs []error
	for _, id := range event.ProductIDs {
		if err := evictor.DeleteProduct(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("evict product %s: %w", id, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// saramaHeaderCarrierConsumer adapts consumer headers to propagation.TextMapCarrier.
type saramaHeaderCarrierConsumer []*sarama.RecordHeader

func (c saramaHeaderCarrierConsumer) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c saramaHeaderCarrierConsumer) Set(key, value string) {}

func (c saramaHeaderCarrierConsumer) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}
