package session

import "sync"

// Handle identifies a session's slot in a Registry. A handle goes stale
// once the session is removed, even if the slot is reused. The zero
// Handle is never valid.
type Handle struct {
	index int
	gen   uint32
}

const none = -1

type slot struct {
	sess       *Session
	gen        uint32
	live       bool
	prev, next int
}

// Registry is an arena of session slots. Live slots are linked by index,
// most recently added first, so Add and Remove are O(1) and freed slots
// are reused.
type Registry struct {
	mu    sync.Mutex
	slots []slot
	free  []int
	head  int
	count int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{head: none}
}

// Add inserts s at the head of the ordering and returns its handle.
func (r *Registry) Add(s *Session) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var idx int
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, slot{gen: 1})
		idx = len(r.slots) - 1
	}

	sl := &r.slots[idx]
	sl.sess = s
	sl.live = true
	sl.prev = none
	sl.next = r.head
	if r.head != none {
		r.slots[r.head].prev = idx
	}
	r.head = idx
	r.count++

	h := Handle{index: idx, gen: sl.gen}
	s.handle = h
	return h
}

// Remove unlinks the session identified by h. It returns false if h is
// stale, so a session is released by exactly one caller.
func (r *Registry) Remove(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.valid(h) {
		return false
	}
	sl := &r.slots[h.index]
	if sl.prev != none {
		r.slots[sl.prev].next = sl.next
	} else {
		r.head = sl.next
	}
	if sl.next != none {
		r.slots[sl.next].prev = sl.prev
	}

	sl.sess = nil
	sl.live = false
	sl.prev, sl.next = none, none
	sl.gen++
	r.free = append(r.free, h.index)
	r.count--
	return true
}

// Get returns the live session for h.
func (r *Registry) Get(h Handle) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.valid(h) {
		return nil, false
	}
	return r.slots[h.index].sess, true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Sessions returns the live sessions, most recently added first.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*Session, 0, r.count)
	for i := r.head; i != none; i = r.slots[i].next {
		result = append(result, r.slots[i].sess)
	}
	return result
}

// ForEach calls fn for every session live at the time of the call, most
// recently added first. fn may remove any session, including the one it
// was given; sessions removed before their turn are skipped.
func (r *Registry) ForEach(fn func(*Session)) {
	for _, s := range r.Sessions() {
		if _, ok := r.Get(s.handle); !ok {
			continue
		}
		fn(s)
	}
}

func (r *Registry) valid(h Handle) bool {
	if h.index < 0 || h.index >= len(r.slots) {
		return false
	}
	sl := &r.slots[h.index]
	return sl.live && sl.gen == h.gen
}
