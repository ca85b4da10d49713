package ci

// DeviceRegistry holds the local device's identity plus every
// currently-known remote device, keyed by MUID. It also offers a
// single subscription point for profile events fanned out from every
// remote's ProfileRegistry: the forwarding listener is installed lazily
// on each remote only while at least one subscriber is registered here,
// and removed again once the last subscriber leaves.
type DeviceRegistry struct {
	Local *DeviceInfo

	remotes map[MUID]*DeviceInfo

	alloc                handleAllocator
	remoteProfileSubs    []remoteProfileSub
	remoteForwardHandles map[MUID]Handle
}

// remoteProfileSub pairs a fan-out listener with its handle, keeping
// subscription order for callback delivery.
type remoteProfileSub struct {
	h Handle
	l RemoteProfileListener
}

// NewDeviceRegistry builds a registry with no remotes known yet.
func NewDeviceRegistry(local *DeviceInfo) *DeviceRegistry {
	return &DeviceRegistry{
		Local:                local,
		remotes:              map[MUID]*DeviceInfo{},
		remoteForwardHandles: map[MUID]Handle{},
	}
}

func (r *DeviceRegistry) snapshotRemoteSubs() []remoteProfileSub {
	return append([]remoteProfileSub(nil), r.remoteProfileSubs...)
}

// AddOrReplaceRemote inserts info, replacing any existing entry for the
// same MUID. If remote-profile forwarding is currently active, it is
// installed on the new entry too.
func (r *DeviceRegistry) AddOrReplaceRemote(info *DeviceInfo) {
	if old, ok := r.remotes[info.MUID]; ok {
		r.uninstallForwarding(old)
	}
	r.remotes[info.MUID] = info
	if len(r.remoteProfileSubs) > 0 {
		r.installForwarding(info)
	}
}

// RemoveRemote deletes the entry for muid, if present.
func (r *DeviceRegistry) RemoveRemote(muid MUID) {
	if info, ok := r.remotes[muid]; ok {
		r.uninstallForwarding(info)
		delete(r.remotes, muid)
	}
}

// Lookup returns the remote entry for muid, if known.
func (r *DeviceRegistry) Lookup(muid MUID) (*DeviceInfo, bool) {
	info, ok := r.remotes[muid]
	return info, ok
}

// Remotes returns a snapshot slice of all known remotes; safe to
// iterate while the registry is concurrently mutated from a listener
// callback.
func (r *DeviceRegistry) Remotes() []*DeviceInfo {
	out := make([]*DeviceInfo, 0, len(r.remotes))
	for _, info := range r.remotes {
		out = append(out, info)
	}
	return out
}

// MostRecent returns the remote with the largest LastReceiveTime.
func (r *DeviceRegistry) MostRecent() (*DeviceInfo, bool) {
	var best *DeviceInfo
	for _, info := range r.remotes {
		if best == nil || info.LastReceiveTime > best.LastReceiveTime {
			best = info
		}
	}
	return best, best != nil
}

// HasLocalOrRemoteMUID reports whether m is the local MUID or a known
// remote's MUID; used to screen candidate MUIDs during collision
// avoidance.
func (r *DeviceRegistry) HasLocalOrRemoteMUID(m MUID) bool {
	if r.Local != nil && r.Local.MUID == m {
		return true
	}
	_, ok := r.remotes[m]
	return ok
}

// RemoteMUIDs returns every known remote MUID, for MUID generation's
// exclusion list.
func (r *DeviceRegistry) RemoteMUIDs() []MUID {
	out := make([]MUID, 0, len(r.remotes))
	for m := range r.remotes {
		out = append(out, m)
	}
	return out
}

// Touch updates (creating if necessary) the remote entry for source's
// LastReceiveTime. Endpoint.OnMIDI calls this for the source MUID of
// every valid inbound frame whose source is not the local MUID.
func (r *DeviceRegistry) Touch(source MUID, nowMillis uint64) *DeviceInfo {
	info, ok := r.remotes[source]
	if !ok {
		info = NewDeviceInfo(source)
		r.remotes[source] = info
		if len(r.remoteProfileSubs) > 0 {
			r.installForwarding(info)
		}
	}
	info.LastReceiveTime = nowMillis
	return info
}

// SubscribeRemoteProfiles registers l to receive profile events fanned
// out from every remote's ProfileRegistry. The forwarding listener is
// installed on all current (and future) remotes the moment the first
// subscriber arrives.
func (r *DeviceRegistry) SubscribeRemoteProfiles(l RemoteProfileListener) Handle {
	h := r.alloc.alloc()
	wasEmpty := len(r.remoteProfileSubs) == 0
	r.remoteProfileSubs = append(r.remoteProfileSubs, remoteProfileSub{h, l})
	if wasEmpty {
		for _, info := range r.remotes {
			r.installForwarding(info)
		}
	}
	return h
}

// UnsubscribeRemoteProfiles removes a previously registered listener,
// uninstalling the forwarding listener from every remote once the last
// subscriber leaves.
func (r *DeviceRegistry) UnsubscribeRemoteProfiles(h Handle) {
	for i, sub := range r.remoteProfileSubs {
		if sub.h == h {
			r.remoteProfileSubs = append(r.remoteProfileSubs[:i], r.remoteProfileSubs[i+1:]...)
			break
		}
	}
	if len(r.remoteProfileSubs) == 0 {
		for _, info := range r.remotes {
			r.uninstallForwarding(info)
		}
	}
}

func (r *DeviceRegistry) installForwarding(info *DeviceInfo) {
	if _, ok := r.remoteForwardHandles[info.MUID]; ok {
		return
	}
	owner := info.MUID
	r.remoteForwardHandles[owner] = info.Profiles.Subscribe(ProfileRegistryListener{
		OnAdded: func(id ProfileId, state *ProfileState) {
			for _, sub := range r.snapshotRemoteSubs() {
				if sub.l.OnAdded != nil {
					sub.l.OnAdded(owner, id, state)
				}
			}
		},
		OnRemoved: func(id ProfileId) {
			for _, sub := range r.snapshotRemoteSubs() {
				if sub.l.OnRemoved != nil {
					sub.l.OnRemoved(owner, id)
				}
			}
		},
		OnAvailableChange: func(id ProfileId, channel uint8) {
			for _, sub := range r.snapshotRemoteSubs() {
				if sub.l.OnAvailableChange != nil {
					sub.l.OnAvailableChange(owner, id, channel)
				}
			}
		},
		OnCanEnable: func(id ProfileId, channel uint8, newState bool) bool {
			committed := newState
			for _, sub := range r.snapshotRemoteSubs() {
				if sub.l.OnCanEnable != nil {
					committed = sub.l.OnCanEnable(owner, id, channel, committed)
				}
			}
			return committed
		},
		OnEnabledChange: func(id ProfileId, channel uint8) {
			for _, sub := range r.snapshotRemoteSubs() {
				if sub.l.OnEnabledChange != nil {
					sub.l.OnEnabledChange(owner, id, channel)
				}
			}
		},
		OnSpecificDataChange: func(id ProfileId) {
			for _, sub := range r.snapshotRemoteSubs() {
				if sub.l.OnSpecificDataChange != nil {
					sub.l.OnSpecificDataChange(owner, id)
				}
			}
		},
	})
}

func (r *DeviceRegistry) uninstallForwarding(info *DeviceInfo) {
	if h, ok := r.remoteForwardHandles[info.MUID]; ok {
		info.Profiles.Unsubscribe(h)
		delete(r.remoteForwardHandles, info.MUID)
	}
}
