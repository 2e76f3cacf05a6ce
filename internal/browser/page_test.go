package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeadlineFor(t *testing.T) {
	t.Parallel()

	// The fetch path passes a positive wait budget, which bounds navigation
	// and selector waits alike.
	bounded, cancel := deadlineFor(context.Background(), 50*time.Millisecond)
	defer cancel()
	deadline, ok := bounded.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 20*time.Millisecond)

	// The session flow passes zero: the home-page navigation stays open-ended
	// while a challenge resolves.
	unbounded, cancel := deadlineFor(context.Background(), 0)
	defer cancel()
	_, ok = unbounded.Deadline()
	require.False(t, ok)
}
