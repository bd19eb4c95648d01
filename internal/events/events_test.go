package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/formdesk/internal/model"
)

func TestNoopPublisher_Publish(t *testing.T) {
	pub := &NoopPublisher{}
	err := pub.Publish(context.Background(), TopicFormSaved, FormSaved{})
	if err != nil {
		t.Fatalf("NoopPublisher.Publish returned unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("NoopPublisher.Close returned unexpected error: %v", err)
	}
}

func TestImplementsInterfaces(t *testing.T) {
	var _ Publisher = (*NoopPublisher)(nil)
	var _ Publisher = (*NATSPublisher)(nil)
	var _ Subscriber = (*NoopSubscriber)(nil)
	var _ Subscriber = (*NATSSubscriber)(nil)
}

func TestDecodeFormRef(t *testing.T) {
	for _, tc := range []struct {
		name    string
		event   any
		want    model.TicketType
		version int
	}{
		{"saved", FormSaved{TicketType: "bug", Version: 3}, "bug", 3},
		{"field added", FieldAdded{TicketType: "support", Version: 2, Field: &model.FormField{ID: "summary"}}, "support", 2},
		{"section removed", SectionRemoved{TicketType: "appeal", Version: 9, SectionID: "S1"}, "appeal", 9},
		{"deleted", FormDeleted{TicketType: "bug"}, "bug", 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.event)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			ref, err := DecodeFormRef(data)
			if err != nil {
				t.Fatalf("DecodeFormRef: %v", err)
			}
			if ref.TicketType != tc.want || ref.Version != tc.version {
				t.Errorf("got %+v, want %s@%d", ref, tc.want, tc.version)
			}
		})
	}
}

func TestDecodeFormRef_Invalid(t *testing.T) {
	for _, data := range []string{`not json`, `{}`, `{"submission":{"id":"sub-1"}}`} {
		if _, err := DecodeFormRef([]byte(data)); err == nil {
			t.Errorf("DecodeFormRef(%s): expected error", data)
		}
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	// Subscribe to capture published messages.
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(TopicFieldAdded, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	event := FieldAdded{TicketType: "bug", Version: 2, Field: &model.FormField{ID: "fld-1", Label: "Summary"}}
	if err := pub.Publish(context.Background(), TopicFieldAdded, event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	pub.conn.Flush()

	select {
	case msg := <-ch:
		var got FieldAdded
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Field.ID != "fld-1" || got.TicketType != "bug" {
			t.Errorf("got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_PublishMultipleTopics(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 4)
	sub, err := nc.ChanSubscribe(TopicAllForms, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	for _, tc := range []struct {
		topic string
		event any
	}{
		{TopicFormSaved, FormSaved{TicketType: "bug", Version: 1}},
		{TopicFieldRemoved, FieldRemoved{TicketType: "bug", FieldID: "type"}},
		{TopicSectionMoved, SectionMoved{TicketType: "bug", SectionID: "S1", Order: 0}},
		{TopicSubmissionCreated, SubmissionCreated{Submission: &model.Submission{ID: "sub-1"}}},
	} {
		if err := pub.Publish(context.Background(), tc.topic, tc.event); err != nil {
			t.Fatalf("Publish(%s): %v", tc.topic, err)
		}
	}
	pub.conn.Flush()

	// Only the three form events match formdesk.form.>.
	for i := 0; i < 3; i++ {
		select {
		case msg := <-ch:
			if _, err := DecodeFormRef(msg.Data); err != nil {
				t.Errorf("message %d on %s: %v", i, msg.Subject, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
	select {
	case msg := <-ch:
		t.Fatalf("unexpected message on %s", msg.Subject)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNATSPublisher_Close(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	// Publishing after close should fail.
	err = pub.Publish(context.Background(), TopicFormSaved, FormSaved{})
	if err == nil {
		t.Error("expected error publishing after close")
	}
}

func TestNATSPublisherConn_CloseKeepsConnection(t *testing.T) {
	url := startTestNATS(t)

	nc, err := Connect(url, "test")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()

	pub := NewNATSPublisherConn(nc)
	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if !nc.IsConnected() {
		t.Fatal("shared connection should stay open")
	}
	if err := pub.Publish(context.Background(), TopicFormSaved, FormSaved{TicketType: "bug"}); err != nil {
		t.Fatalf("publish on shared connection: %v", err)
	}
}
