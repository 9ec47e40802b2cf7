package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/pkg/errors"
	"github.com/tintun2602/eduwallet-sub000/internal/utils/timingutils"
)

// Uploads larger than this get the long timeout.
const largeBlobThreshold = 64 << 20

// IPFSStore publishes blobs to an IPFS node through its HTTP API.
type IPFSStore struct {
	sh *shell.Shell
}

// NewIPFSStore connects to the IPFS API at url (e.g. "localhost:5001").
func NewIPFSStore(url string) *IPFSStore {
	return &IPFSStore{sh: shell.NewShell(url)}
}

// Publish implements `IBlobStore`.
func (s *IPFSStore) Publish(ctx context.Context, contents []byte) (cid string, err error) {
	defer timingutils.GetDeferrableTimingLogger("publish certificate to IPFS")()

	if len(contents) == 0 {
		return "", fmt.Errorf("certificate cannot be empty")
	}
	if err = ctx.Err(); err != nil {
		return "", err
	}

	// Increase timeout for large files
	if len(contents) > largeBlobThreshold {
		s.sh.SetTimeout(120 * time.Second)
	} else {
		s.sh.SetTimeout(30 * time.Second)
	}

	cid, err = s.sh.Add(bytes.NewReader(contents), shell.Pin(true))
	if err != nil {
		err = errors.Wrap(err, "cannot publish certificate to IPFS")
	}

	return
}
