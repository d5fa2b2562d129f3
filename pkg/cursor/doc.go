// Package cursor implements the pagination strategies for walking SendGrid
// endpoints to completion.
//
// Each cursor is a lazy, single-pass, non-restartable iterator over decoded
// response bodies. Callers drive it with Next until it reports done:
//
//	cur := cursor.NewOffset(c, stream, url, start, end)
//	for {
//		batch, ok, err := cur.Next(ctx)
//		if err != nil {
//			return err
//		}
//		if !ok {
//			break
//		}
//		// consume batch
//	}
//
// Three strategies exist, matching the three endpoint families:
//
//   - Paged: page/page_size pagination with an end-of-records heuristic and
//     bounded decode retries at the same page.
//   - Offset: offset/limit window bounded by start_time/end_time, terminating
//     on a short batch.
//   - Bulk: offset pagination with a very large limit for flat listings,
//     terminating on an empty batch.
//
// Cursors hold their own page/offset state; they are not safe for concurrent
// use and are consumed to completion before the next stream starts.
package cursor
