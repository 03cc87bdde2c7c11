package ratelimit

import (
	"sort"
	"sync"
	"time"
)

// Registry hands out one Channel per backend name. Channels are created on
// first use and shared by every caller for the life of the process.
type Registry struct {
	mu       sync.Mutex
	channels map[string]*Channel
}

// Default is the process-wide registry used by the work backends.
var Default = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]*Channel)}
}

// For returns the channel for name, creating it with the given rate if it
// does not exist yet. The rate of an existing channel is never changed.
func (r *Registry) For(name string, limit int, per time.Duration) *Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.channels[name]; ok {
		return ch
	}
	ch := NewChannel(name, limit, per)
	r.channels[name] = ch
	return ch
}

// Stats returns a snapshot of every channel, ordered by name.
func (r *Registry) Stats() []ChannelStats {
	r.mu.Lock()
	channels := make([]*Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		channels = append(channels, ch)
	}
	r.mu.Unlock()

	out := make([]ChannelStats, 0, len(channels))
	for _, ch := range channels {
		out = append(out, ch.Stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
