package seed

import "github.com/cameron-eth/firstballotETL/internal/provider"

// DefaultBatchSize bounds one persistence transaction.
const DefaultBatchSize = 1000

// Chunk splits recs into consecutive batches of at most n records. The
// batches share recs' backing array.
func Chunk(recs []provider.Record, n int) [][]provider.Record {
	if n <= 0 {
		n = DefaultBatchSize
	}
	batches := make([][]provider.Record, 0, (len(recs)+n-1)/n)
	for len(recs) > n {
		batches = append(batches, recs[:n:n])
		recs = recs[n:]
	}
	if len(recs) > 0 {
		batches = append(batches, recs)
	}
	return batches
}
