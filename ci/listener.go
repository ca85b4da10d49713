package ci

// Handle identifies a subscribed listener so it can be unsubscribed
// later. Every mutable subsystem below owns a flat list of listener
// handles and delivers callbacks by handle; no subsystem holds an
// owning reference back to its subscribers.
type Handle uint64

// handleAllocator hands out ascending, never-reused handles for one
// subsystem instance. No copy operation is provided: assigning a
// subsystem value copies its allocator and its listener list along
// with it.
type handleAllocator struct {
	next Handle
}

func (a *handleAllocator) alloc() Handle {
	a.next++
	return a.next
}

// ProfileStateListener is the set of callbacks a subscriber to a single
// ProfileState may provide. Any field may be left nil.
type ProfileStateListener struct {
	// OnAvailableChange fires after SetChannelAvailable changes the bit
	// for channel.
	OnAvailableChange func(channel uint8)
	// OnCanEnable is invoked before SetChannelEnabled commits a change,
	// with the requested new state; it returns the state that should
	// actually be committed, letting any subscriber veto the change by
	// returning the previous value.
	OnCanEnable func(channel uint8, newState bool) bool
	// OnEnabledChange fires after the enabled bit for channel actually
	// changes (post-veto).
	OnEnabledChange func(channel uint8)
	// OnSpecificDataChange fires after SetSpecificData replaces the
	// profile's specific-data bytes.
	OnSpecificDataChange func()
}

// ProfileRegistryListener is the set of callbacks a subscriber to a
// ProfileRegistry may provide, mirroring ProfileStateListener but with
// the owning ProfileId attached to every event so a single subscriber
// can distinguish between the registry's member profiles.
type ProfileRegistryListener struct {
	OnAdded              func(id ProfileId, state *ProfileState)
	OnRemoved            func(id ProfileId)
	OnAvailableChange    func(id ProfileId, channel uint8)
	OnCanEnable          func(id ProfileId, channel uint8, newState bool) bool
	OnEnabledChange      func(id ProfileId, channel uint8)
	OnSpecificDataChange func(id ProfileId)
}

// RemoteProfileListener is the set of callbacks a subscriber to
// DeviceRegistry.SubscribeRemoteProfiles may provide. It is
// ProfileRegistryListener with the owning device's MUID attached to
// every event, since a single subscription here fans in events from
// every remote's ProfileRegistry.
type RemoteProfileListener struct {
	OnAdded              func(owner MUID, id ProfileId, state *ProfileState)
	OnRemoved            func(owner MUID, id ProfileId)
	OnAvailableChange    func(owner MUID, id ProfileId, channel uint8)
	OnCanEnable          func(owner MUID, id ProfileId, channel uint8, newState bool) bool
	OnEnabledChange      func(owner MUID, id ProfileId, channel uint8)
	OnSpecificDataChange func(owner MUID, id ProfileId)
}
