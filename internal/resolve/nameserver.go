package resolve

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

// NameserverLookup returns a LookupFunc that sends A queries to server
// instead of using the system resolver. A missing port defaults to 53.
func NameserverLookup(server string, timeout time.Duration) LookupFunc {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	client := &dns.Client{Net: "udp", Timeout: timeout}

	return func(ctx context.Context, host string) ([]netip.Addr, error) {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
		msg.RecursionDesired = true

		resp, _, err := client.ExchangeContext(ctx, msg, server)
		if err != nil {
			return nil, fmt.Errorf("querying %s: %w", server, err)
		}
		if resp.Rcode != dns.RcodeSuccess {
			return nil, fmt.Errorf("querying %s: %s", server, dns.RcodeToString[resp.Rcode])
		}

		var addrs []netip.Addr
		for _, rr := range resp.Answer {
			a, ok := rr.(*dns.A)
			if !ok {
				continue
			}
			if addr, ok := netip.AddrFromSlice(a.A); ok {
				addrs = append(addrs, addr.Unmap())
			}
		}
		if len(addrs) == 0 {
			return nil, fmt.Errorf("no A records for %s", host)
		}
		return addrs, nil
	}
}
