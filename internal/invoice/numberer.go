package invoice

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	redisclient "github.com/sabrositas/pos-backend/pkg/redis"
)

const timestampLayout = "20060102150405"

// Numberer produces unique, URL-safe invoice identifiers. Identifiers are
// non-decreasing at second granularity; the per-second sequence comes from
// Redis so concurrent API instances coordinate. Uniqueness is ultimately
// backstopped by the invoice column's unique index, which the sale commit
// retries on.
type Numberer interface {
	Next(ctx context.Context) (string, error)
	RefundNumber(originalInvoice string, priorRefunds int) string
}

type numberer struct {
	seq      redisclient.Sequencer
	prefix   string
	now      func() time.Time
	fallback atomic.Int64
}

// NewNumberer wires an invoice numberer with the provided sequencer and prefix.
func NewNumberer(seq redisclient.Sequencer, prefix string) (Numberer, error) {
	if prefix == "" {
		return nil, fmt.Errorf("invoice prefix is required")
	}
	return &numberer{seq: seq, prefix: prefix, now: time.Now}, nil
}

func (n *numberer) Next(ctx context.Context) (string, error) {
	bucket := n.now().UTC().Format(timestampLayout)

	var seq int64
	if n.seq != nil {
		got, err := n.seq.NextInvoiceSeq(ctx, bucket)
		if err == nil {
			seq = got
		} else {
			// Redis outage must not block the register; the local counter
			// keeps numbers flowing and the unique index catches clashes.
			seq = n.fallback.Add(1)
		}
	} else {
		seq = n.fallback.Add(1)
	}

	return fmt.Sprintf("%s-%s-%d", n.prefix, bucket, seq), nil
}

// RefundNumber derives the identifier for the (priorRefunds+1)th refund of
// an invoice. The first refund carries no suffix.
func (n *numberer) RefundNumber(originalInvoice string, priorRefunds int) string {
	if priorRefunds <= 0 {
		return fmt.Sprintf("REFUND-%s", originalInvoice)
	}
	return fmt.Sprintf("REFUND-%s-%d", originalInvoice, priorRefunds+1)
}
