package backend

import (
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

// LoadPrefilter reads a serialized bloom filter of known coupon codes, as
// produced by cmd/coupon-prefilter.
func LoadPrefilter(path string) (*bloom.BloomFilter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open prefilter %s", path)
	}
	defer f.Close()

	var filter bloom.BloomFilter
	if _, err := filter.ReadFrom(f); err != nil {
		return nil, errors.Wrapf(err, "read prefilter %s", path)
	}
	return &filter, nil
}
