package ci

import "sort"

// ProfileRegistry is an ordered set of ProfileStates keyed by ProfileId,
// owned by one device (identified by Owner). It re-subscribes itself to
// every state it creates so that a single subscription to the registry
// receives every per-state event, tagged with the owning ProfileId.
type ProfileRegistry struct {
	Owner MUID

	states  map[ProfileId]*ProfileState
	ordered []ProfileId // kept sorted by ProfileId.Less

	alloc handleAllocator
	subs  []registrySub
}

// registrySub pairs a listener with its handle, keeping subscription
// order for callback delivery.
type registrySub struct {
	h Handle
	l ProfileRegistryListener
}

// NewProfileRegistry builds an empty registry owned by muid.
func NewProfileRegistry(muid MUID) *ProfileRegistry {
	return &ProfileRegistry{
		Owner:  muid,
		states: map[ProfileId]*ProfileState{},
	}
}

// Subscribe registers l for every current and future state's events.
func (r *ProfileRegistry) Subscribe(l ProfileRegistryListener) Handle {
	h := r.alloc.alloc()
	r.subs = append(r.subs, registrySub{h, l})
	return h
}

// Unsubscribe removes a previously registered listener.
func (r *ProfileRegistry) Unsubscribe(h Handle) {
	for i, sub := range r.subs {
		if sub.h == h {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return
		}
	}
}

func (r *ProfileRegistry) snapshotSubs() []registrySub {
	return append([]registrySub(nil), r.subs...)
}

// Contains reports whether id is present.
func (r *ProfileRegistry) Contains(id ProfileId) bool {
	_, ok := r.states[id.sortKey()]
	return ok
}

// Get returns the state for id, if present.
func (r *ProfileRegistry) Get(id ProfileId) (*ProfileState, bool) {
	s, ok := r.states[id.sortKey()]
	return s, ok
}

// Count returns the number of distinct profiles held.
func (r *ProfileRegistry) Count() int { return len(r.ordered) }

// Ordered returns the registry's ProfileIds in sorted order, the order
// used for inquiry replies.
func (r *ProfileRegistry) Ordered() []ProfileId {
	out := make([]ProfileId, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Range walks the registry's states in sorted order, stopping when fn
// returns false.
func (r *ProfileRegistry) Range(fn func(state *ProfileState) bool) {
	for _, id := range r.Ordered() {
		if state, ok := r.states[id.sortKey()]; ok {
			if !fn(state) {
				return
			}
		}
	}
}

// Add inserts id if absent (firing OnAdded), or mutates the existing
// state if present, in both cases setting channel's enabled bit to
// enabled (which implicitly marks the channel available). The resulting
// state is returned.
func (r *ProfileRegistry) Add(id ProfileId, channel uint8, enabled bool) *ProfileState {
	key := id.sortKey()
	state, exists := r.states[key]
	if !exists {
		state = newProfileState(id)
		r.states[key] = state
		r.installForwarding(state)
		r.insertSorted(id)
		for _, sub := range r.snapshotSubs() {
			if sub.l.OnAdded != nil {
				sub.l.OnAdded(id, state)
			}
		}
	}
	state.SetChannelEnabled(channel, enabled)
	return state
}

// Remove deletes id if present, firing OnRemoved.
func (r *ProfileRegistry) Remove(id ProfileId) {
	key := id.sortKey()
	if _, ok := r.states[key]; !ok {
		return
	}
	delete(r.states, key)
	r.removeSorted(id)
	for _, sub := range r.snapshotSubs() {
		if sub.l.OnRemoved != nil {
			sub.l.OnRemoved(id)
		}
	}
}

// Clear empties the registry without individually firing OnRemoved for
// each member.
func (r *ProfileRegistry) Clear() {
	r.states = map[ProfileId]*ProfileState{}
	r.ordered = nil
}

// ChannelCount returns the number of distinct profiles with channel
// available; this is the per-channel count an inquiry reply advertises
// (enabled channels are implicitly available).
func (r *ProfileRegistry) ChannelCount(channel uint8) int {
	n := 0
	for _, id := range r.ordered {
		if r.states[id.sortKey()].IsChannelAvailable(channel) {
			n++
		}
	}
	return n
}

func (r *ProfileRegistry) insertSorted(id ProfileId) {
	i := sort.Search(len(r.ordered), func(i int) bool { return !r.ordered[i].Less(id) })
	r.ordered = append(r.ordered, ProfileId{})
	copy(r.ordered[i+1:], r.ordered[i:])
	r.ordered[i] = id
}

func (r *ProfileRegistry) removeSorted(id ProfileId) {
	for i, existing := range r.ordered {
		if existing.Equal(id) {
			r.ordered = append(r.ordered[:i], r.ordered[i+1:]...)
			return
		}
	}
}

// installForwarding subscribes the registry itself to state, so the
// registry's own listeners see every per-state event tagged with id.
func (r *ProfileRegistry) installForwarding(state *ProfileState) {
	id := state.id
	state.Subscribe(ProfileStateListener{
		OnAvailableChange: func(channel uint8) {
			for _, sub := range r.snapshotSubs() {
				if sub.l.OnAvailableChange != nil {
					sub.l.OnAvailableChange(id, channel)
				}
			}
		},
		OnCanEnable: func(channel uint8, newState bool) bool {
			committed := newState
			for _, sub := range r.snapshotSubs() {
				if sub.l.OnCanEnable != nil {
					committed = sub.l.OnCanEnable(id, channel, committed)
				}
			}
			return committed
		},
		OnEnabledChange: func(channel uint8) {
			for _, sub := range r.snapshotSubs() {
				if sub.l.OnEnabledChange != nil {
					sub.l.OnEnabledChange(id, channel)
				}
			}
		},
		OnSpecificDataChange: func() {
			for _, sub := range r.snapshotSubs() {
				if sub.l.OnSpecificDataChange != nil {
					sub.l.OnSpecificDataChange(id)
				}
			}
		},
	})
}
