package bus

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"ayaka/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPublishSubscribe(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	b.Publish(domain.InboundMessage{Channel: "telegram", UserID: 42, Text: "hello"})

	select {
	case msg := <-b.Subscribe():
		if msg.UserID != 42 || msg.Text != "hello" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestOutboundRouting(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	got := make(chan domain.OutboundMessage, 1)
	b.OnOutbound("telegram", func(msg domain.OutboundMessage) { got <- msg })

	b.SendOutbound(domain.OutboundMessage{Channel: "telegram", ChatID: 7, Content: "hi"})

	select {
	case msg := <-got:
		if msg.ChatID != 7 || msg.Content != "hi" {
			t.Fatalf("unexpected outbound: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("outbound handler not called")
	}
}

func TestOutboundUnknownChannelIsIgnored(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	// Must not panic.
	b.SendOutbound(domain.OutboundMessage{Channel: "nope", Content: "x"})
}

func TestPublishAfterClose(t *testing.T) {
	b := New(10, testLogger())
	b.Close()

	// Must not panic or block.
	b.Publish(domain.InboundMessage{Channel: "telegram"})
}
