// Package dedupe provides full-record deduplication for detector output.
package dedupe

import (
	"context"
	"fmt"

	"github.com/mitchellh/hashstructure/v2"
)

// Deduper records seen items to keep only the first occurrence of each.
type Deduper[T comparable] interface {
	// SeenAndRecord reports whether an equal item was recorded before and
	// records item if it was not.
	SeenAndRecord(ctx context.Context, item T) (bool, error)
}

// HashSet implements Deduper by hashing every field of the item with
// hashstructure and confirming matches with ==, so hash collisions never
// merge distinct records.
//
// A HashSet is scoped to one chunk and owned by a single goroutine; it is
// not safe for concurrent use.
type HashSet[T comparable] struct {
	buckets map[uint64][]T
}

// NewHashSet creates an empty set.
func NewHashSet[T comparable](opts ...Option) *HashSet[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return &HashSet[T]{
		buckets: make(map[uint64][]T, o.sizeHint),
	}
}

// SeenAndRecord reports whether item was already recorded; if not, it is recorded.
func (s *HashSet[T]) SeenAndRecord(_ context.Context, item T) (bool, error) {
	h, err := hashstructure.Hash(item, hashstructure.FormatV2, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrHash, err)
	}

	bucket := s.buckets[h]
	for _, existing := range bucket {
		if existing == item {
			return true, nil
		}
	}
	s.buckets[h] = append(bucket, item)
	return false, nil
}

// Unique returns the items of in that are distinct under key, keeping the
// first occurrence of each and preserving input order.
func Unique[E any, K comparable](ctx context.Context, in []E, key func(E) K) ([]E, error) {
	set := NewHashSet[K](WithSizeHint(len(in)))
	out := make([]E, 0, len(in))
	for _, e := range in {
		seen, err := set.SeenAndRecord(ctx, key(e))
		if err != nil {
			return nil, err
		}
		if !seen {
			out = append(out, e)
		}
	}
	return out, nil
}
