// Package batch splits large id sets into API-sized chunks and fetches the
// chunks with a bounded worker pool.
//
// MediaWiki limits multi-value parameters such as ids or pageids to 50
// values per request. Adapters use Fetch so that one logical batched call
// from the core maps onto as few HTTP requests as the limit allows:
//
//	cfg := batch.DefaultConfig()
//	labels, err := batch.Fetch(ctx, cfg, ids, func(ctx context.Context, chunk []string) (map[string]Label, error) {
//		return api.getEntities(ctx, chunk)
//	})
//
// Chunk results are merged in chunk order. The first failing chunk cancels
// the others and fails the whole fetch; a batched call either succeeds
// entirely or reports an error.
package batch
