package swrcache

// Self-heal reasons passed to Hooks.SelfHeal.
const (
	ReasonCorrupt        = "corrupt"
	ReasonSchemaMismatch = "schema_mismatch"
	ReasonExpired        = "expired"
	ReasonValueDecode    = "value_decode"
)

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them inline on every Load.
type Hooks interface {
	// An entry was deleted by the cache on read.
	// reason ∈ {"corrupt", "schema_mismatch", "expired", "value_decode"}
	SelfHeal(storageKey, reason string)

	// Provider or generation store returned an error. op ∈ {"get", "set", "del", "gen"}.
	// The cache degraded to network-only for this call.
	StoreFault(op, storageKey string, err error)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// Fetch failed while cached data was already surfaced; error not reported to the caller.
	FetchAbsorbed(storageKey string, err error)

	// Fetch failed with nothing to show; OnError fired.
	FetchFailed(storageKey string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)          {}
func (NopHooks) StoreFault(string, string, error) {}
func (NopHooks) ProviderSetRejected(string)       {}
func (NopHooks) FetchAbsorbed(string, error)      {}
func (NopHooks) FetchFailed(string, error)        {}
