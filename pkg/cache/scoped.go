package cache

// ScopedKeyer wraps a Keyer with a prefix so that several projects can share
// one Redis instance without reading each other's entries.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "project:billing:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// TransformKey generates a prefixed key for transform response caching.
func (k *ScopedKeyer) TransformKey(model, instruction, payload string) string {
	return k.prefix + k.inner.TransformKey(model, instruction, payload)
}
