package ptr

import (
	"context"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// PtrManager looks up and caches reverse names of probed addresses
type PtrManager struct {
	mu         sync.Mutex
	cache      map[netip.Addr]string
	lookupFunc func(ctx context.Context, addr string) ([]string, error)
	retries    int
	retryDelay time.Duration
}

// NewPtrManager creates a PtrManager backed by the system resolver
func NewPtrManager() *PtrManager {
	return &PtrManager{
		cache:      make(map[netip.Addr]string),
		lookupFunc: net.DefaultResolver.LookupAddr,
		retries:    3,
		retryDelay: 100 * time.Millisecond,
	}
}

// RequestPTR looks up the reverse name of addr unless it is cached or
// already being looked up.
func (pm *PtrManager) RequestPTR(ctx context.Context, addr netip.Addr) {
	pm.mu.Lock()
	if _, exists := pm.cache[addr]; exists {
		pm.mu.Unlock()
		return
	}
	pm.cache[addr] = "" // in progress
	pm.mu.Unlock()

	for i := range pm.retries {
		if i > 0 {
			select {
			case <-ctx.Done():
				pm.forget(addr)
				return
			case <-time.After(pm.retryDelay):
			}
		}
		names, err := pm.lookupFunc(ctx, addr.String())
		if err == nil && len(names) > 0 {
			pm.mu.Lock()
			pm.cache[addr] = normalizePTR(names[0])
			pm.mu.Unlock()
			return
		}
	}
	pm.forget(addr)
}

// forget drops the in-progress marker so a later request looks addr up again
func (pm *PtrManager) forget(addr netip.Addr) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.cache[addr] == "" {
		delete(pm.cache, addr)
	}
}

// RequestAll looks up every address in addrs, at most parallel at a time
func (pm *PtrManager) RequestAll(ctx context.Context, addrs []netip.Addr, parallel int) {
	g := new(errgroup.Group)
	g.SetLimit(max(parallel, 1))
	for _, addr := range addrs {
		g.Go(func() error {
			pm.RequestPTR(ctx, addr)
			return nil
		})
	}
	_ = g.Wait()
}

// GetPTR retrieves the cached PTR result for addr
// Returns the PTR and a boolean indicating if it was found
func (pm *PtrManager) GetPTR(addr netip.Addr) (string, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	ptr, exists := pm.cache[addr]
	if ptr == "" {
		return ptr, false
	}
	return ptr, exists
}

func normalizePTR(name string) string {
	return strings.TrimSuffix(name, ".")
}
