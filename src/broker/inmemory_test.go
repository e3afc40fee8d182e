// Package broker provides implementations of the Broker interface.
package broker

import (
	"context"
	"testing"
	"time"
)

// TestPublishDeliverToSubscriber verifies a message is published and received successfully.
func TestPublishDeliverToSubscriber(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	ch, err := broker.Subscribe(ctx, "test-topic", "group")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	testMsg := []byte("hello world")
	if err := broker.Publish(ctx, "test-topic", "key-1", testMsg); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case received := <-ch:
		if string(received.Value) != string(testMsg) {
			t.Errorf("Expected %q, got %q", testMsg, received.Value)
		}
		if received.Key != "key-1" {
			t.Errorf("Expected key %q, got %q", "key-1", received.Key)
		}
		if received.Topic != "test-topic" {
			t.Errorf("Expected topic %q, got %q", "test-topic", received.Topic)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

// TestTopicIsolation verifies subscribers on different topics do not receive wrong messages.
func TestTopicIsolation(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	chA, err := broker.Subscribe(ctx, "topic-a", "group")
	if err != nil {
		t.Fatalf("Subscribe to topic-a failed: %v", err)
	}
	chB, err := broker.Subscribe(ctx, "topic-b", "group")
	if err != nil {
		t.Fatalf("Subscribe to topic-b failed: %v", err)
	}

	if err := broker.Publish(ctx, "topic-a", "", []byte("for-a")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case received := <-chA:
		if string(received.Value) != "for-a" {
			t.Errorf("Expected %q, got %q", "for-a", received.Value)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message on topic-a")
	}

	select {
	case received := <-chB:
		t.Errorf("topic-b subscriber received unexpected message: %q", received.Value)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestMultipleSubscribers verifies every subscriber on a topic receives each message.
func TestMultipleSubscribers(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	ch1, err := broker.Subscribe(ctx, "shared", "g1")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	ch2, err := broker.Subscribe(ctx, "shared", "g2")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := broker.Publish(ctx, "shared", "", []byte("fan-out")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for i, ch := range []<-chan Message{ch1, ch2} {
		select {
		case received := <-ch:
			if string(received.Value) != "fan-out" {
				t.Errorf("Subscriber %d: expected %q, got %q", i+1, "fan-out", received.Value)
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("Timeout waiting for subscriber %d", i+1)
		}
	}
}

// TestOffsetsIncreasePerTopic verifies messages on a topic carry increasing offsets.
func TestOffsetsIncreasePerTopic(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	ch, err := broker.Subscribe(ctx, "offsets", "group")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := broker.Publish(ctx, "offsets", "", []byte("msg")); err != nil {
			t.Fatalf("Publish %d failed: %v", i, err)
		}
	}

	for want := int64(0); want < 3; want++ {
		select {
		case received := <-ch:
			if received.Offset != want {
				t.Errorf("Expected offset %d, got %d", want, received.Offset)
			}
		case <-time.After(1 * time.Second):
			t.Fatal("Timeout waiting for message")
		}
	}
}

// TestPublishAfterClose verifies operations on a closed broker fail.
func TestPublishAfterClose(t *testing.T) {
	broker := NewInMemoryBroker()
	broker.Close()

	if err := broker.Publish(context.Background(), "topic", "", []byte("late")); err == nil {
		t.Error("Expected error publishing to closed broker")
	}
	if _, err := broker.Subscribe(context.Background(), "topic", "group"); err == nil {
		t.Error("Expected error subscribing to closed broker")
	}
}

// TestCloseClosesSubscriberChannels verifies Close terminates consumer loops.
func TestCloseClosesSubscriberChannels(t *testing.T) {
	broker := NewInMemoryBroker()

	ch, err := broker.Subscribe(context.Background(), "topic", "group")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	broker.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Expected channel to be closed")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for channel close")
	}
}
