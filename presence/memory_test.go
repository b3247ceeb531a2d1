package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Presence_Lifecycle(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	tracker := NewMemory(time.Minute)

	online, err := tracker.IsOnline(ctx, "alice")
	req.NoError(err)
	req.False(online)

	req.NoError(tracker.MarkOnline(ctx, "alice"))
	online, err = tracker.IsOnline(ctx, "alice")
	req.NoError(err)
	req.True(online)

	req.NoError(tracker.MarkOffline(ctx, "alice"))
	online, err = tracker.IsOnline(ctx, "alice")
	req.NoError(err)
	req.False(online)
}

func Test_Presence_Entry_Expires(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	tracker := NewMemory(20 * time.Millisecond)

	req.NoError(tracker.MarkOnline(ctx, "alice"))
	time.Sleep(40 * time.Millisecond)

	// Without a refresh the entry decays to offline
	online, err := tracker.IsOnline(ctx, "alice")
	req.NoError(err)
	req.False(online)

	// A refresh keeps it alive
	req.NoError(tracker.MarkOnline(ctx, "alice"))
	online, err = tracker.IsOnline(ctx, "alice")
	req.NoError(err)
	req.True(online)
}
