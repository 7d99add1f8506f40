package cache

// ScopedKeyer prefixes the keys of another Keyer, so that several products
// can share one cache without colliding:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "sle16:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to every key of inner.
// A nil inner uses the default keyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ReportKey implements [Keyer].
func (k *ScopedKeyer) ReportKey(schemeHash, inputHash string, opts ReportKeyOpts) string {
	return k.prefix + k.inner.ReportKey(schemeHash, inputHash, opts)
}

// RenderKey implements [Keyer].
func (k *ScopedKeyer) RenderKey(reportHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(reportHash, opts)
}
