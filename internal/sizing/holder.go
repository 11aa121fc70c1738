package sizing

import "sync"

// Holder shares the active classifier between requests; the band table can be
// replaced at runtime.
type Holder struct {
	mu sync.RWMutex
	c  *Classifier
}

func NewHolder(c *Classifier) *Holder {
	return &Holder{c: c}
}

func (h *Holder) Get() *Classifier {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.c
}

func (h *Holder) Set(c *Classifier) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.c = c
}
