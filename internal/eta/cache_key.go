package eta

import (
	"fmt"

	"bustracker.transport.org/internal/cache"
)

// Kind separates cached summary answers from detailed ones.
type Kind uint8

const (
	KindSummary Kind = iota + 1
	KindDetail
)

func (k Kind) String() string {
	switch k {
	case KindSummary:
		return "summary"
	case KindDetail:
		return "detail"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// CacheKey identifies one memoized computation. RouteID zero stands for
// "the bus's current route"; HasStopOrder tells whether StopOrder is set.
type CacheKey struct {
	BusNumber    string
	RouteID      int64
	StopOrder    int
	HasStopOrder bool
	Kind         Kind
}

// Cache is the shared store of computed ETAs.
type Cache = cache.TTLCache[CacheKey, Computation]

func newCacheKey(q Query, kind Kind) CacheKey {
	k := CacheKey{BusNumber: q.BusNumber, Kind: kind}
	if q.RouteID != nil {
		k.RouteID = *q.RouteID
	}
	if q.StopOrder != nil {
		k.StopOrder = *q.StopOrder
		k.HasStopOrder = true
	}
	return k
}
