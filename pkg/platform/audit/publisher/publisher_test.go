package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "landregistry/pkg/platform/audit"
)

func TestChannelEmit(t *testing.T) {
	t.Run("delivers to inbox", func(t *testing.T) {
		c := NewChannel(4, nil)
		event := audit.Event{
			Category:  audit.CategoryCompliance,
			Timestamp: time.Now(),
			Actor:     "0xabc",
			Action:    audit.ActionLandApproved,
			LandID:    7,
		}
		require.NoError(t, c.Emit(context.Background(), event))

		select {
		case got := <-c.Inbox():
			assert.Equal(t, audit.ActionLandApproved, got.Action)
			assert.Equal(t, int64(7), got.LandID)
		default:
			t.Fatal("expected event in inbox")
		}
	})

	t.Run("drops when inbox is full without blocking", func(t *testing.T) {
		c := NewChannel(1, nil)
		require.NoError(t, c.Emit(context.Background(), audit.Event{Action: audit.ActionLandRequested}))

		done := make(chan struct{})
		go func() {
			_ = c.Emit(context.Background(), audit.Event{Action: audit.ActionLandRejected})
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Emit blocked on a full inbox")
		}
	})
}
