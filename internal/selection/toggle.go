package selection

import "sync/atomic"

// Toggle is the shared probe-first switch. Reads never block writers.
type Toggle struct {
	v atomic.Bool
}

// NewToggle returns a toggle initialised to on.
func NewToggle(on bool) *Toggle {
	t := &Toggle{}
	t.v.Store(on)
	return t
}

func (t *Toggle) Get() bool {
	if t == nil {
		return false
	}
	return t.v.Load()
}

func (t *Toggle) Set(on bool) {
	t.v.Store(on)
}
