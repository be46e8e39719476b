package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront-svc/models"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"go.uber.org/zap/zaptest"
)

type fakeEvictor struct {
	mu      sync.Mutex
	evicted []string
	err     error
	done    chan struct{}
}

func (f *fakeEvictor) DeleteProduct(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicted = append(f.evicted, id)
	if f.done != nil && len(f.evicted) == 2 {
		close(f.done)
	}
	return f.err
}

func eventMessage(t *testing.T, event models.OrderEvent) *sarama.ConsumerMessage {
	t.Helper()
	value, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}
	return &sarama.ConsumerMessage{Topic: "order_events", Value: value}
}

func TestHandleMessage(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("order placed evicts products", func(t *testing.T) {
		evictor := &fakeEvictor{}
		msg := eventMessage(t, models.OrderEvent{OrderID: "o-1", ProductIDs: []string{"p1", "p2"}, EventType: models.EventOrderPlaced})

		if err := handleMessage(context.Background(), msg, evictor, logger); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(evictor.evicted) != 2 {
			t.Errorf("Expected 2 evictions, got %v", evictor.evicted)
		}
	})

	t.Run("other events are ignored", func(t *testing.T) {
		evictor := &fakeEvictor{}
		msg := eventMessage(t, models.OrderEvent{OrderID: "o-1", ProductIDs: []string{"p1"}, EventType: "order_shipped"})

		if err := handleMessage(context.Background(), msg, evictor, logger); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(evictor.evicted) != 0 {
			t.Errorf("Expected no evictions, got %v", evictor.evicted)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		msg := &sarama.ConsumerMessage{Value: []byte("{not json")}
		if err := handleMessage(context.Background(), msg, &fakeEvictor{}, logger); err == nil {
			t.Error("Expected unmarshal error")
		}
	})

	t.Run("eviction failure is reported", func(t *testing.T) {
		evictor := &fakeEvictor{err: errors.New("redis down")}
		msg := eventMessage(t, models.OrderEvent{OrderID: "o-1", ProductIDs: []string{"p1"}, EventType: models.EventOrderPlaced})

		if err := handleMessage(context.Background(), msg, evictor, logger); err == nil {
			t.Error("Expected eviction error")
		}
	})
}

func TestStartConsumer(t *testing.T) {
	consumer := mocks.NewConsumer(t, nil)
	consumer.SetTopicMetadata(map[string][]int32{"order_events": {0}})
	consumer.ExpectConsumePartition("order_events", 0, sarama.OffsetNewest).
		YieldMessage(eventMessage(t, models.OrderEvent{
			OrderID:    "o-1",
			ProductIDs: []string{"p1", "p2"},
			EventType:  models.EventOrderPlaced,
		}))

	evictor := &fakeEvictor{done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		errc <- StartConsumer(ctx, consumer, "order_events", evictor, zaptest.NewLogger(t))
	}()

	select {
	case <-evictor.done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for evictions")
	}
	cancel()

	if err := <-errc; err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
}
