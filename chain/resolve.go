package chain

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

const fallbackDNSServer = "127.0.0.53:53"

// resolveEndpoint returns http(s) endpoints unchanged and resolves
// dnssrv://_service._proto.domain[?scheme=http] to the SRV target with the
// lowest priority and, among those, the highest weight.
func resolveEndpoint(ctx context.Context, endpoint, server string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid chain endpoint: %w", err)
	}
	if parsed.Scheme != "dnssrv" {
		return endpoint, nil
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("invalid chain endpoint %q: missing SRV name", endpoint)
	}

	scheme := parsed.Query().Get("scheme")
	if scheme == "" {
		scheme = "https"
	}

	records, err := lookupSRV(ctx, parsed.Host, server)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", fmt.Errorf("no SRV records for %s", parsed.Host)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Priority != records[j].Priority {
			return records[i].Priority < records[j].Priority
		}
		return records[i].Weight > records[j].Weight
	})
	best := records[0]
	host := strings.TrimSuffix(best.Target, ".")
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(host, strconv.Itoa(int(best.Port)))), nil
}

func lookupSRV(ctx context.Context, name, server string) ([]*dns.SRV, error) {
	if server == "" {
		server = defaultDNSServer()
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeSRV)
	m.RecursionDesired = true

	c := new(dns.Client)
	in, _, err := c.ExchangeContext(ctx, m, server)
	if err != nil {
		return nil, fmt.Errorf("SRV lookup of %s failed: %w", name, err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("SRV lookup of %s failed: %s", name, dns.RcodeToString[in.Rcode])
	}

	records := make([]*dns.SRV, 0, len(in.Answer))
	for _, answer := range in.Answer {
		if srv, ok := answer.(*dns.SRV); ok {
			records = append(records, srv)
		}
	}
	return records, nil
}

func defaultDNSServer() string {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		return fallbackDNSServer
	}
	return net.JoinHostPort(conf.Servers[0], conf.Port)
}
