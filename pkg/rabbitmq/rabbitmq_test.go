package rabbitmq

import (
	"errors"
	"io"
	"log"
	"os"
	"testing"
	"time"

	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// recordingAcknowledger captures how a delivery was settled.
type recordingAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (r *recordingAcknowledger) Ack(tag uint64, multiple bool) error {
	r.acked = true
	return nil
}

func (r *recordingAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	r.nacked = true
	r.requeue = requeue
	return nil
}

func (r *recordingAcknowledger) Reject(tag uint64, requeue bool) error {
	return r.Nack(tag, false, requeue)
}

func TestEncodeDecodeEvent(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("WIB", 7*3600))
	body, err := EncodeEvent("account.created", map[string]interface{}{
		"username":  "alice",
		"shopNames": []string{"a", "b", "c"},
	}, now)
	require.NoError(t, err)

	ev, err := DecodeEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "account.created", ev.Type)
	assert.True(t, ev.OccurredAt.Equal(now))
	assert.Equal(t, time.UTC, ev.OccurredAt.Location())
	assert.JSONEq(t, `{"username":"alice","shopNames":["a","b","c"]}`, string(ev.Payload))
}

func TestDecodeEvent_Rejects(t *testing.T) {
	_, err := DecodeEvent([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{"payload":{}}`))
	assert.Error(t, err, "an event needs a type")
}

func TestEncodeEvent_UnmarshalablePayload(t *testing.T) {
	_, err := EncodeEvent("account.created", make(chan int), time.Now())
	assert.Error(t, err)
}

func TestHandleDelivery(t *testing.T) {
	valid, err := EncodeEvent("account.created", map[string]string{"username": "alice"}, time.Now())
	require.NoError(t, err)
	failing := func(Event) error { return errors.New("provisioning failed") }

	tests := []struct {
		name        string
		body        []byte
		redelivered bool
		handler     func(Event) error
		wantAck     bool
		wantRequeue bool
	}{
		{"handled", valid, false, func(Event) error { return nil }, true, false},
		{"malformed is dropped", []byte("{"), false, nil, false, false},
		{"failure is requeued once", valid, false, failing, false, true},
		{"redelivered failure is dropped", valid, true, failing, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &recordingAcknowledger{}
			called := false
			handler := func(ev Event) error {
				called = true
				assert.Equal(t, "account.created", ev.Type)
				return tt.handler(ev)
			}

			handleDelivery(amqp.Delivery{
				Acknowledger: ack,
				DeliveryTag:  1,
				Redelivered:  tt.redelivered,
				Body:         tt.body,
			}, handler)

			assert.Equal(t, tt.handler != nil, called)
			assert.Equal(t, tt.wantAck, ack.acked)
			assert.Equal(t, !tt.wantAck, ack.nacked)
			assert.Equal(t, tt.wantRequeue, ack.requeue)
		})
	}
}

func TestPublishEvent_WithoutChannel(t *testing.T) {
	c := &Client{}
	assert.Error(t, c.PublishEvent("account.created", nil))
	assert.Error(t, c.ConsumeAccountEvents(func(Event) error { return nil }))
	assert.NoError(t, c.Close())
}
