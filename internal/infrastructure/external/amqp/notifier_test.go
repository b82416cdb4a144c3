package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChannel struct {
	key    string
	msg    amqp.Publishing
	err    error
	closed bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.key = key
	f.msg = msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestNotifier_PublishesPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	n := &Notifier{ch: ch, queue: "travel.notifications", logger: zap.NewNop()}

	require.NoError(t, n.Notify(context.Background(), "ana@example.com", "Ana", 7, "Trip quote"))

	assert.Equal(t, "travel.notifications", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)

	var got Message
	require.NoError(t, json.Unmarshal(ch.msg.Body, &got))
	assert.Equal(t, "ana@example.com", got.Contact)
	assert.Equal(t, int64(7), got.RequestID)
	assert.Equal(t, "Trip quote", got.StatusLabel)
}

func TestNotifier_PublishError(t *testing.T) {
	n := &Notifier{ch: &fakeChannel{err: errors.New("channel closed")}, queue: "q", logger: zap.NewNop()}
	assert.Error(t, n.Notify(context.Background(), "a@example.com", "A", 1, "x"))
}

func TestNotifier_Close(t *testing.T) {
	ch := &fakeChannel{}
	n := &Notifier{ch: ch, queue: "q", logger: zap.NewNop()}
	require.NoError(t, n.Close())
	assert.True(t, ch.closed)
}

func TestNewNotifier_RequiresQueue(t *testing.T) {
	_, err := NewNotifier(Config{URL: "amqp://localhost"}, zap.NewNop())
	assert.Error(t, err)
}
