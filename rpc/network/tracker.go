package network

// --------------------------------------------------------------------------
// Connection pool
// --------------------------------------------------------------------------

// connState tracks which of the three pool sets a connection occupies.
type connState uint8

const (
	stateCreating connState = iota
	stateAvailable
	stateInUse
)

// endpointPool holds the pool state for a single endpoint.
// Invariant: len(available) + inUse + creating never exceeds the tracker's
// per-endpoint maximum, enforced by MayCreate before a creation is admitted.
type endpointPool struct {
	available []ConnectionID
	inUse     int
	creating  int
}

func (p *endpointPool) total() int {
	return len(p.available) + p.inUse + p.creating
}

// ConnectionTracker manages the per-endpoint connection pools of a
// NetworkClient. It only does bookkeeping: connects are initiated by the
// orchestrator through the selector, never by the tracker.
//
// The tracker is not safe for concurrent use; like the rest of the network
// engine it is owned by the single goroutine driving the dispatch cycle.
type ConnectionTracker struct {
	maxPerEndpoint int
	pools          map[Endpoint]*endpointPool
	home           map[ConnectionID]Endpoint
	states         map[ConnectionID]connState
}

// NewConnectionTracker creates a tracker enforcing the given per-endpoint
// connection limit.
func NewConnectionTracker(maxPerEndpoint int) *ConnectionTracker {
	return &ConnectionTracker{
		maxPerEndpoint: maxPerEndpoint,
		pools:          make(map[Endpoint]*endpointPool),
		home:           make(map[ConnectionID]Endpoint),
		states:         make(map[ConnectionID]connState),
	}
}

// pool returns the pool for the endpoint, creating it on first use.
func (t *ConnectionTracker) pool(endpoint Endpoint) *endpointPool {
	p, ok := t.pools[endpoint]
	if !ok {
		p = &endpointPool{}
		t.pools[endpoint] = p
	}
	return p
}

// CheckOut atomically removes one available connection of the endpoint and
// marks it in-use. The second return value is false if no connection is
// available; in that case the pool state is unchanged.
func (t *ConnectionTracker) CheckOut(endpoint Endpoint) (ConnectionID, bool) {
	p := t.pool(endpoint)
	if len(p.available) == 0 {
		return "", false
	}

	// LIFO keeps recently used connections warm
	connID := p.available[len(p.available)-1]
	p.available = p.available[:len(p.available)-1]
	p.inUse++
	t.states[connID] = stateInUse
	return connID, true
}

// MayCreate reports whether the endpoint is below its connection limit and a
// new connection may be created for it.
func (t *ConnectionTracker) MayCreate(endpoint Endpoint) bool {
	return t.pool(endpoint).total() < t.maxPerEndpoint
}

// RegisterCreating records a connection as pending-creation. It must be called
// right after the selector was asked to connect, so the connection counts
// against the endpoint's limit before the connect completes.
func (t *ConnectionTracker) RegisterCreating(endpoint Endpoint, connID ConnectionID) {
	t.pool(endpoint).creating++
	t.home[connID] = endpoint
	t.states[connID] = stateCreating
}

// CheckIn moves a connection into the endpoint's available set, either from
// in-use after a completed request or from pending-creation on its first
// successful connect. Checking in an already available connection is a no-op.
func (t *ConnectionTracker) CheckIn(connID ConnectionID) {
	endpoint, ok := t.home[connID]
	if !ok {
		return
	}
	p := t.pool(endpoint)

	switch t.states[connID] {
	case stateCreating:
		p.creating--
	case stateInUse:
		p.inUse--
	case stateAvailable:
		return
	}

	p.available = append(p.available, connID)
	t.states[connID] = stateAvailable
}

// Remove deletes a connection from whichever set it occupies. Removing an
// unknown connection is a no-op, so disconnect events and client shutdown may
// both call it without coordination.
func (t *ConnectionTracker) Remove(connID ConnectionID) {
	endpoint, ok := t.home[connID]
	if !ok {
		return
	}
	p := t.pool(endpoint)

	switch t.states[connID] {
	case stateCreating:
		p.creating--
	case stateInUse:
		p.inUse--
	case stateAvailable:
		for i, id := range p.available {
			if id == connID {
				p.available = append(p.available[:i], p.available[i+1:]...)
				break
			}
		}
	}

	delete(t.home, connID)
	delete(t.states, connID)
}

// Shutdown drops all pooled connections and resets the tracker to its
// pre-initialized state.
func (t *ConnectionTracker) Shutdown() {
	t.pools = make(map[Endpoint]*endpointPool)
	t.home = make(map[ConnectionID]Endpoint)
	t.states = make(map[ConnectionID]connState)
}

// --------------------------------------------------------------------------
// Introspection helpers
// --------------------------------------------------------------------------

// Available returns the number of idle connections pooled for the endpoint.
func (t *ConnectionTracker) Available(endpoint Endpoint) int {
	return len(t.pool(endpoint).available)
}

// Total returns available + in-use + pending-creation for the endpoint.
func (t *ConnectionTracker) Total(endpoint Endpoint) int {
	return t.pool(endpoint).total()
}
