package events

import (
	"testing"
	"time"
)

func recvOne(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestBus_PublishReachesSubscriber(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe(TopicToast)
	defer cancel()

	b.ToastSuccessf("saved")

	evt := recvOne(t, ch)
	if evt.Level != ToastSuccess {
		t.Errorf("expected level %q, got %q", ToastSuccess, evt.Level)
	}
	if evt.Message != "saved" {
		t.Errorf("expected message 'saved', got %q", evt.Message)
	}
}

func TestBus_TopicsAreIsolated(t *testing.T) {
	b := NewBus()
	toasts, cancelToasts := b.Subscribe(TopicToast)
	defer cancelToasts()
	expired, cancelExpired := b.Subscribe(TopicAuthExpired)
	defer cancelExpired()

	b.AuthExpired()

	evt := recvOne(t, expired)
	if evt.Topic != TopicAuthExpired {
		t.Errorf("expected topic %q, got %q", TopicAuthExpired, evt.Topic)
	}
	select {
	case evt := <-toasts:
		t.Errorf("toast subscriber received unrelated event: %+v", evt)
	default:
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe(TopicAuthExpired)
	cancel()

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	b.AuthExpired()
}

func TestBus_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBus()
	_, cancel := b.Subscribe(TopicToast)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.ToastErrorf("overflow")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}
