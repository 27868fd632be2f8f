package config

import (
	"net/netip"

	"github.com/tkjaer/bootprobe/internal/resolve"
)

var defaultHosts = []resolve.HostPort{
	{Host: "router.bittorrent.com", Port: 6881},
	{Host: "dht.transmissionbt.com", Port: 6881},
	{Host: "router.utorrent.com", Port: 6881},
	{Host: "router.bitcomet.com", Port: 6881},
	{Host: "dht.aelitis.com", Port: 6881},
	{Host: "dht.libtorrent.org", Port: 25401},
	{Host: "dht.anacrolix.link", Port: 6881},
	{Host: "router.silotis.us", Port: 6881},
}

// Known addresses of the default hosts, probed even when DNS fails
var defaultLiterals = []string{
	"67.215.246.10:6881",
	"67.215.246.11:6881",
	"212.129.33.59:6881",
	"85.17.40.79:6881",
}

// DefaultHosts returns the built-in bootstrap hostnames
func DefaultHosts() []resolve.HostPort {
	return append([]resolve.HostPort(nil), defaultHosts...)
}

// DefaultLiterals returns the built-in bootstrap addresses
func DefaultLiterals() []netip.AddrPort {
	out := make([]netip.AddrPort, 0, len(defaultLiterals))
	for _, s := range defaultLiterals {
		out = append(out, netip.MustParseAddrPort(s))
	}
	return out
}
