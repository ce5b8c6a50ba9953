package privacy

import (
	"context"
	"log/slog"
	"sync"
)

// Mode is the explicit, persisted user setting for patient identification.
type Mode string

const (
	// ModeID shows only de-identified public codes. Safe default.
	ModeID Mode = "id"
	// ModeNome permits full names, subject to the other two signals.
	ModeNome Mode = "nome"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeID || m == ModeNome
}

// TokenState is the probed hardware-token signal.
type TokenState string

const (
	TokenPresent TokenState = "present"
	TokenAbsent  TokenState = "absent"
)

// Connectivity is the runtime's network-reachability signal.
type Connectivity string

const (
	Online  Connectivity = "online"
	Offline Connectivity = "offline"
)

// Decide is the canonical disclosure decision. It is referentially pure:
// identical inputs always yield the identical boolean, and nothing is
// memoized anywhere that could go stale.
//
// Disclosure requires all three: explicit nome mode, a present token, and
// an offline device. ID mode is false for every other combination.
func Decide(mode Mode, token TokenState, connectivity Connectivity) bool {
	return mode == ModeNome && token == TokenPresent && connectivity == Offline
}

// Gate holds the three live signals and notifies subscribers whenever one
// changes. Safe for concurrent use.
type Gate struct {
	mu           sync.Mutex
	mode         Mode
	token        TokenState
	connectivity Connectivity

	probe       TokenProbe
	settings    SettingsStore
	subscribers []func(bool)
	logger      *slog.Logger
}

// NewGate creates a gate wired to a token probe and a settings store.
//
// The persisted mode is loaded if readable; any load problem falls back to
// ModeID. Token starts absent until the first CheckToken, and connectivity
// starts online. All three defaults are the non-disclosing side.
func NewGate(probe TokenProbe, settings SettingsStore) *Gate {
	g := &Gate{
		mode:         ModeID,
		token:        TokenAbsent,
		connectivity: Online,
		probe:        probe,
		settings:     settings,
		logger:       slog.Default(),
	}
	if settings != nil {
		mode, err := settings.LoadMode()
		if err != nil {
			g.logger.Warn("privacy settings unreadable, staying in id mode", "error", err)
		} else if mode.Valid() {
			g.mode = mode
		}
	}
	return g
}

// Disclose returns the current disclosure decision, recomputed from the
// live signals on every call.
func (g *Gate) Disclose() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Decide(g.mode, g.token, g.connectivity)
}

// Signals returns the current inputs, for status display.
func (g *Gate) Signals() (Mode, TokenState, Connectivity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode, g.token, g.connectivity
}

// SetMode records the explicit user choice, persists it, and notifies
// subscribers. An unknown mode is ignored. Persistence failure is logged
// and the in-memory mode still applies for this run.
func (g *Gate) SetMode(mode Mode) {
	if !mode.Valid() {
		return
	}
	g.mu.Lock()
	g.mode = mode
	g.mu.Unlock()

	if g.settings != nil {
		if err := g.settings.SaveMode(mode); err != nil {
			g.logger.Warn("failed to persist privacy mode", "mode", mode, "error", err)
		}
	}
	g.notify()
}

// CheckToken re-probes the token indicator and notifies subscribers. A
// probe failure counts as absent: the gate fails closed, never open.
func (g *Gate) CheckToken(ctx context.Context) TokenState {
	state := TokenAbsent
	if g.probe != nil {
		probed, err := g.probe.Probe(ctx)
		if err != nil {
			g.logger.Warn("token probe failed, treating as absent", "error", err)
		} else {
			state = probed
		}
	}

	g.mu.Lock()
	g.token = state
	g.mu.Unlock()

	g.notify()
	return state
}

// SetConnectivity records a network-reachability transition and notifies
// subscribers. Typically driven by BindConnectivity.
func (g *Gate) SetConnectivity(c Connectivity) {
	g.mu.Lock()
	g.connectivity = c
	g.mu.Unlock()
	g.notify()
}

// BindConnectivity consumes online/offline transitions from an external
// signal source until ctx ends or the channel closes.
func (g *Gate) BindConnectivity(ctx context.Context, events <-chan Connectivity) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-events:
				if !ok {
					return
				}
				g.SetConnectivity(c)
			}
		}
	}()
}

// Subscribe registers fn to be called with the fresh decision after every
// signal change. The decision at subscription time is delivered
// immediately so consumers never start from a guess.
func (g *Gate) Subscribe(fn func(disclose bool)) {
	g.mu.Lock()
	g.subscribers = append(g.subscribers, fn)
	decision := Decide(g.mode, g.token, g.connectivity)
	g.mu.Unlock()
	fn(decision)
}

func (g *Gate) notify() {
	g.mu.Lock()
	decision := Decide(g.mode, g.token, g.connectivity)
	subs := make([]func(bool), len(g.subscribers))
	copy(subs, g.subscribers)
	g.mu.Unlock()

	for _, fn := range subs {
		fn(decision)
	}
}
