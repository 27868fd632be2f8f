package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/tkjaer/bootprobe/internal/shared"
)

// HostPort is a hostname that must be resolved before it can be probed
type HostPort struct {
	Host string
	Port uint16
}

func (h HostPort) String() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(int(h.Port)))
}

// LookupFunc returns the IPv4 addresses of host in resolver order
type LookupFunc func(ctx context.Context, host string) ([]netip.Addr, error)

// SystemLookup resolves host with the system resolver, IPv4 only
func SystemLookup(ctx context.Context, host string) ([]netip.Addr, error) {
	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return nil, err
	}
	return onlyIPv4(addrs), nil
}

func onlyIPv4(addrs []netip.Addr) []netip.Addr {
	out := make([]netip.Addr, 0, len(addrs))
	for _, a := range addrs {
		a = a.Unmap()
		if a.Is4() {
			out = append(out, a)
		}
	}
	return out
}

// Resolver turns configured hostnames and literal addresses into probe targets
type Resolver struct {
	lookup LookupFunc
	cache  *ttlcache.Cache[string, []netip.Addr]
}

// NewResolver creates a Resolver. Successful lookups are cached for ttl;
// a ttl of zero disables caching.
func NewResolver(lookup LookupFunc, ttl time.Duration) *Resolver {
	if lookup == nil {
		lookup = SystemLookup
	}
	r := &Resolver{lookup: lookup}
	if ttl > 0 {
		r.cache = ttlcache.New(
			ttlcache.WithTTL[string, []netip.Addr](ttl),
			ttlcache.WithDisableTouchOnHit[string, []netip.Addr](),
		)
	}
	return r
}

// Resolve returns the deduplicated targets for hosts followed by literals.
// Hostnames that fail to resolve contribute no targets.
func (r *Resolver) Resolve(ctx context.Context, hosts []HostPort, literals []netip.AddrPort) []shared.Target {
	targets := make([]shared.Target, 0, len(hosts)+len(literals))

	for _, h := range hosts {
		addrs, err := r.lookupHost(ctx, h.Host)
		if err != nil {
			slog.Warn("Failed to resolve host", "host", h.Host, "error", err)
			continue
		}
		if len(addrs) == 0 {
			slog.Warn("Host has no IPv4 addresses", "host", h.Host)
			continue
		}
		slog.Debug("Resolved host", "host", h.Host, "addresses", addrs)
		for _, a := range addrs {
			targets = append(targets, shared.Target{Addr: a, Port: h.Port})
		}
	}

	for _, l := range literals {
		targets = append(targets, shared.NewTarget(l))
	}

	return Dedupe(targets)
}

func (r *Resolver) lookupHost(ctx context.Context, host string) ([]netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		addr = addr.Unmap()
		if !addr.Is4() {
			return nil, fmt.Errorf("%s is not an IPv4 address", host)
		}
		return []netip.Addr{addr}, nil
	}

	if r.cache != nil {
		if item := r.cache.Get(host); item != nil {
			return item.Value(), nil
		}
	}

	addrs, err := r.lookup(ctx, host)
	if err != nil {
		return nil, err
	}
	addrs = onlyIPv4(addrs)

	if r.cache != nil && len(addrs) > 0 {
		r.cache.Set(host, addrs, ttlcache.DefaultTTL)
	}
	return addrs, nil
}

// Dedupe removes repeated targets, keeping the first occurrence of each
func Dedupe(targets []shared.Target) []shared.Target {
	seen := make(map[shared.Target]struct{}, len(targets))
	out := make([]shared.Target, 0, len(targets))
	for _, t := range targets {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
