package store

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ContentID returns the CIDv1 (raw codec, sha2-256) of data.
func ContentID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// ContentIDString is ContentID rendered as a string, or "" when hashing
// fails (only possible for invalid multihash parameters).
func ContentIDString(data []byte) string {
	id, err := ContentID(data)
	if err != nil {
		return ""
	}
	return id.String()
}
