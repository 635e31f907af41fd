package messaging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

func startTestServer(t *testing.T) *NatsServer {
	t.Helper()

	s, err := NewNatsServer(WithStartTimeout(5 * time.Second))
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("server stopped with error: %v", err)
		}
	})

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	if err := s.WaitReady(waitCtx); err != nil {
		t.Fatalf("waiting for server: %v", err)
	}
	return s
}

func TestNatsServer_NotStarted(t *testing.T) {
	s, err := NewNatsServer()
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	err = s.Publish("x", nil)
	testutil.AssertErrorContains(t, err, "nats server not started")

	_, err = s.Subscribe("x", func(string, []byte) {})
	testutil.AssertErrorContains(t, err, "nats server not started")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.WaitReady(ctx); err == nil {
		t.Errorf("expected WaitReady to time out")
	}
}

func TestNatsServer_SessionRoundTrip(t *testing.T) {
	s := startTestServer(t)
	pub := NewNatsPublisher(s)

	var mu sync.Mutex
	var got []string
	closed := make(chan string, 1)

	sess := &funcSession{
		deliver: func(data []byte) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, string(data))
		},
		close: func(reason string) { closed <- reason },
	}

	unsub, err := pub.SubscribeSession("6f1c-44", sess)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer unsub()
	if err := s.Flush(); err != nil {
		t.Fatalf("flushing: %v", err)
	}

	for _, msg := range []string{"one", "two", "three"} {
		if err := pub.Publish([]string{"6f1c-44", "someone-else"}, []byte(msg)); err != nil {
			t.Fatalf("publishing: %v", err)
		}
	}
	if err := pub.Disconnect("6f1c-44", "bye"); err != nil {
		t.Fatalf("disconnecting: %v", err)
	}

	select {
	case reason := <-closed:
		testutil.AssertEqual(t, "reason", reason, "bye")
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for disconnect")
	}

	mu.Lock()
	defer mu.Unlock()
	testutil.AssertEqual(t, "delivered before disconnect", len(got), 3)
	testutil.AssertEqual(t, "order", got[2], "three")
}

type funcSession struct {
	deliver func([]byte)
	close   func(string)
}

func (s *funcSession) Deliver(data []byte) { s.deliver(data) }
func (s *funcSession) Close(reason string) { s.close(reason) }
