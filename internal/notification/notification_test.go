package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerworks/walletledger/internal/logging"
)

func TestRedisNotifierPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "ledger:events")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := NewRedisNotifier(client, "ledger:events")
	require.NoError(t, n.Send(ctx, Event{
		Kind:          KindTransferCommitted,
		TransactionID: "tx-1",
		SenderID:      1,
		RecipientID:   2,
		Amount:        "50.00",
	}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, KindTransferCommitted, got.Kind)
	assert.Equal(t, "tx-1", got.TransactionID)
	assert.Equal(t, "50.00", got.Amount)
}

func TestLoggerNotifierNeverFails(t *testing.T) {
	var nilNotifier *LoggerNotifier
	assert.NoError(t, nilNotifier.Send(context.Background(), Event{}))
	assert.NoError(t, NewLoggerNotifier(logging.Discard()).Send(context.Background(), Event{Kind: KindTransferRejected}))
}
