package cache

// ScopedKeyer wraps a [Keyer] with a prefix so independent projects keep
// separate cache namespaces in a shared backend.
//
// Example usage:
//
//	// Per-project keys in a shared Redis
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "project:"+id+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to every key the
// inner keyer generates. A nil inner falls back to [NewDefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ResultKey generates a prefixed node result key.
func (k *ScopedKeyer) ResultKey(kind string, opts ResultKeyOpts) string {
	return k.prefix + k.inner.ResultKey(kind, opts)
}
