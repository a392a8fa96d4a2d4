package invoice

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSequencer struct {
	counts map[string]int64
	err    error
}

func (f *fakeSequencer) NextInvoiceSeq(ctx context.Context, bucket string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[bucket]++
	return f.counts[bucket], nil
}

func TestNextFormatsIdentifier(t *testing.T) {
	seq := &fakeSequencer{}
	n, err := NewNumberer(seq, "TICKET")
	require.NoError(t, err)
	n.(*numberer).now = func() time.Time {
		return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	}

	first, err := n.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "TICKET-20260314150926-1", first)

	second, err := n.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "TICKET-20260314150926-2", second)
	assert.NotEqual(t, first, second)
}

func TestNextFallsBackWithoutRedis(t *testing.T) {
	n, err := NewNumberer(&fakeSequencer{err: fmt.Errorf("connection refused")}, "TICKET")
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		id, err := n.Next(context.Background())
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate identifier %s", id)
		seen[id] = true
		assert.True(t, strings.HasPrefix(id, "TICKET-"))
	}
}

func TestNewNumbererRequiresPrefix(t *testing.T) {
	_, err := NewNumberer(&fakeSequencer{}, "")
	require.Error(t, err)
}

func TestRefundNumber(t *testing.T) {
	n, err := NewNumberer(&fakeSequencer{}, "TICKET")
	require.NoError(t, err)

	original := "TICKET-20260314150926-1"
	assert.Equal(t, "REFUND-TICKET-20260314150926-1", n.RefundNumber(original, 0))
	assert.Equal(t, "REFUND-TICKET-20260314150926-1-2", n.RefundNumber(original, 1))
	assert.Equal(t, "REFUND-TICKET-20260314150926-1-3", n.RefundNumber(original, 2))
}
