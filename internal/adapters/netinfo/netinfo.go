// Package netinfo finds the addresses under which the dashboard is reachable
// from other machines, for the startup banner. It is informational only.
package netinfo

import (
	"net"
	"sort"
)

// PublicHosts returns the hosts to announce for a server bound to bindHost.
// A configured publicHost wins. A loopback bind has no public hosts. An
// unspecified bind ("", 0.0.0.0, ::) announces every external IPv4 address.
func PublicHosts(bindHost, publicHost string) []string {
	if publicHost != "" {
		return []string{publicHost}
	}
	if bindHost == "localhost" {
		return nil
	}
	if ip := net.ParseIP(bindHost); ip != nil {
		if ip.IsLoopback() {
			return nil
		}
		if !ip.IsUnspecified() {
			return []string{bindHost}
		}
	} else if bindHost != "" {
		return []string{bindHost}
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	return externalIPv4(addrs)
}

// externalIPv4 keeps global-ish IPv4 addresses: no loopback, no link-local.
// The result is sorted and deduplicated.
func externalIPv4(addrs []net.Addr) []string {
	seen := make(map[string]bool)
	var hosts []string
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		ip4 := ip.To4()
		if ip4 == nil || ip4.IsLoopback() || ip4.IsLinkLocalUnicast() || ip4.IsUnspecified() {
			continue
		}
		s := ip4.String()
		if !seen[s] {
			seen[s] = true
			hosts = append(hosts, s)
		}
	}
	sort.Strings(hosts)
	return hosts
}
