package iface

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
)

var ErrNoIPv4 = errors.New("interface has no IPv4 address")

// SourceIPv4 returns the first IPv4 address of the named interface, for
// binding probe sockets to it.
func SourceIPv4(name string) (netip.Addr, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return netip.Addr{}, err
	}
	if ifi.Flags&net.FlagUp == 0 {
		return netip.Addr{}, fmt.Errorf("interface %s is down", name)
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return netip.Addr{}, err
	}
	addr, err := firstIPv4(addrs)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%s: %w", name, err)
	}
	return addr, nil
}

// firstIPv4 picks the first IPv4 address, skipping link-local ones
// when anything else is available.
func firstIPv4(addrs []net.Addr) (netip.Addr, error) {
	var linkLocal netip.Addr
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		default:
			continue
		}
		addr, ok := netip.AddrFromSlice(ip)
		if !ok {
			continue
		}
		addr = addr.Unmap()
		if !addr.Is4() {
			continue
		}
		if addr.IsLinkLocalUnicast() {
			if !linkLocal.IsValid() {
				linkLocal = addr
			}
			continue
		}
		return addr, nil
	}
	if linkLocal.IsValid() {
		return linkLocal, nil
	}
	return netip.Addr{}, ErrNoIPv4
}
