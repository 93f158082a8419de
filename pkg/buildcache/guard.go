// Package buildcache decides when the dependency tree of the working copy has
// to be reinstalled before a commit can be measured.
package buildcache

import "sync"

// Guard tracks the dependency checksum that was last installed in a working
// copy. A Guard is scoped to one walk.
type Guard struct {
	mu           sync.Mutex
	lastCheckSum string
	known        bool
}

// NewGuard returns a Guard with no installed state, so the first check always
// asks for a reinstall.
func NewGuard() *Guard {
	return &Guard{}
}

// ShouldReinstall reports whether the dependencies must be reinstalled for a
// commit whose manifest has the given checksum. A failed checksum lookup
// (checksumErr != nil) always requires a reinstall.
func (g *Guard) ShouldReinstall(checksum string, checksumErr error) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if checksumErr != nil || !g.known {
		return true
	}

	return checksum != g.lastCheckSum
}

// Installed records the checksum observed after a successful install.
func (g *Guard) Installed(checksum string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastCheckSum = checksum
	g.known = true
}

// Forget drops the recorded state; the next check requires a reinstall.
func (g *Guard) Forget() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastCheckSum = ""
	g.known = false
}

// LastCheckSum returns the recorded checksum and whether one is recorded.
func (g *Guard) LastCheckSum() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.lastCheckSum, g.known
}
