package blobstore

import "context"

// IBlobStore is a write-once content-addressed store for certificates. The wallet never reads blobs back; it only
// threads the returned content identifier into a result.
type IBlobStore interface {
	// Publish stores the bytes and returns their content identifier.
	Publish(ctx context.Context, contents []byte) (string, error)
}
