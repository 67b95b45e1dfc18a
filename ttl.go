package swrcache

import "time"

// Entity types with built-in TTLs.
const (
	EntityOrders   = "orders"
	EntityStats    = "stats"
	EntityMenu     = "menu"
	EntitySettings = "settings"
)

const (
	ShortTTL = 5 * time.Minute  // volatile data
	LongTTL  = 30 * time.Minute // slow-changing data
)

// TTLTable maps entity type to how long an entry stays usable.
type TTLTable map[string]time.Duration

var defaultTTLs = TTLTable{
	EntityOrders:   ShortTTL,
	EntityStats:    ShortTTL,
	EntityMenu:     LongTTL,
	EntitySettings: LongTTL,
}

// DefaultTTLs returns a copy of the built-in table. Options.TTLs is merged
// over it, and entity types in neither fall back to Options.DefaultTTL.
func DefaultTTLs() TTLTable { return defaultTTLs.clone() }

// With returns a copy of t with overrides applied. Non-positive overrides are ignored.
func (t TTLTable) With(overrides TTLTable) TTLTable {
	out := t.clone()
	for k, d := range overrides {
		if d > 0 {
			out[k] = d
		}
	}
	return out
}

func (t TTLTable) clone() TTLTable {
	out := make(TTLTable, len(t))
	for k, d := range t {
		out[k] = d
	}
	return out
}

// freshness decides whether a stored entry may be served.
type freshness struct {
	ttls     TTLTable
	fallback time.Duration
}

func (f freshness) ttl(entity string) time.Duration {
	if d, ok := f.ttls[entity]; ok && d > 0 {
		return d
	}
	return f.fallback
}

// fresh reports whether an entry written at writtenMs is still usable at now.
// The boundary is inclusive: age == ttl is fresh.
func (f freshness) fresh(entity string, writtenMs int64, now time.Time) bool {
	age := now.UnixMilli() - writtenMs
	return age <= f.ttl(entity).Milliseconds()
}
