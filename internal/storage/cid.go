package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// LocalCID computes the CIDv1 of data as a single raw block hashed with sha2-256.
func LocalCID(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hash blob: %w", err)
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}

// ParseCID validates a CID string returned by a storage service and returns it
// in its canonical string form.
func ParseCID(value string) (string, error) {
	parsed, err := cid.Decode(value)
	if err != nil {
		return "", fmt.Errorf("invalid cid %q: %w", value, err)
	}
	return parsed.String(), nil
}
