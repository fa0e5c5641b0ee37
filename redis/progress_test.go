package redis_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fwojciec/docchat"
	docredis "github.com/fwojciec/docchat/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressPublisher(t *testing.T) {
	t.Parallel()

	t.Run("publishes event JSON on the project channel", func(t *testing.T) {
		t.Parallel()

		_, client := setupClient(t)
		pub := docredis.NewProgressPublisher(client, "test", nil)
		ctx := context.Background()

		assert.Equal(t, "test:progress:p", pub.Channel("p"))

		sub := client.Subscribe(ctx, pub.Channel("p"))
		defer sub.Close()
		_, err := sub.Receive(ctx)
		require.NoError(t, err)

		ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		pub.Report(ctx, docchat.ProgressEvent{ProjectID: "p", Message: "Crawl started", Timestamp: ts})

		recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		msg, err := sub.ReceiveMessage(recvCtx)
		require.NoError(t, err)

		var got docchat.ProgressEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "Crawl started", got.Message)
		assert.True(t, ts.Equal(got.Timestamp))
	})

	t.Run("logs publish failures instead of returning them", func(t *testing.T) {
		t.Parallel()

		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		defer client.Close()
		mr.Close()

		var buf bytes.Buffer
		pub := docredis.NewProgressPublisher(client, "", slog.New(slog.NewTextHandler(&buf, nil)))

		pub.Report(context.Background(), docchat.ProgressEvent{ProjectID: "p", Message: "lost"})

		assert.Contains(t, buf.String(), "progress publish failed")
	})
}
