// Package lookup resolves large lists of card identifiers through Scryfall's
// bulk collection endpoint.
//
// A Resolver splits the identifiers into batches of at most BatchSizeMax and
// submits them one after another. Pacing between batches is enforced by the
// client's pacer, so a Resolver built on a client.Client never exceeds the API's
// rate limit:
//
//	c, err := client.New(client.DefaultConfig("CollectionTracker/1.0 (me@example.com)"))
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	cards, notFound, err := lookup.NewResolver(c).Resolve(ctx, ids)
//
// A failed batch aborts the whole call. No partial result is returned, but the
// *BatchError reports how many leading identifiers were processed before the
// failure, so a caller can resume with ids[be.Completed:].
package lookup
