package chain

import (
	"context"
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startDNSServer(t *testing.T, records map[string][]*dns.SRV) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	server := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetReply(r)
			name := r.Question[0].Name
			srvs, ok := records[name]
			if !ok {
				m.Rcode = dns.RcodeNameError
			}
			for _, srv := range srvs {
				rr := *srv
				rr.Hdr = dns.RR_Header{Name: name, Rrtype: dns.TypeSRV, Class: dns.ClassINET, Ttl: 60}
				m.Answer = append(m.Answer, &rr)
			}
			_ = w.WriteMsg(m)
		}),
	}
	go func() { _ = server.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = server.Shutdown() })
	return pc.LocalAddr().String()
}

func TestResolveEndpoint(t *testing.T) {
	addr := startDNSServer(t, map[string][]*dns.SRV{
		"_rest._tcp.provenance.example.": {
			{Priority: 20, Weight: 100, Port: 1317, Target: "backup.provenance.example."},
			{Priority: 10, Weight: 1, Port: 1317, Target: "light.provenance.example."},
			{Priority: 10, Weight: 50, Port: 443, Target: "node.provenance.example."},
		},
	})
	ctx := context.Background()

	endpoint, err := resolveEndpoint(ctx, "dnssrv://_rest._tcp.provenance.example", addr)
	require.NoError(t, err)
	assert.Equal(t, "https://node.provenance.example:443", endpoint)

	endpoint, err = resolveEndpoint(ctx, "dnssrv://_rest._tcp.provenance.example?scheme=http", addr)
	require.NoError(t, err)
	assert.Equal(t, "http://node.provenance.example:443", endpoint)

	_, err = resolveEndpoint(ctx, "dnssrv://_rest._tcp.missing.example", addr)
	assert.Error(t, err)

	endpoint, err = resolveEndpoint(ctx, "https://rest.provenance.example", addr)
	require.NoError(t, err)
	assert.Equal(t, "https://rest.provenance.example", endpoint)
}

func TestDial_ResolvesSRV(t *testing.T) {
	addr := startDNSServer(t, map[string][]*dns.SRV{
		"_rest._tcp.local.example.": {{Priority: 1, Weight: 1, Port: 1317, Target: "127.0.0.1."}},
	})

	client, err := Dial(context.Background(), Config{
		Endpoint:  "dnssrv://_rest._tcp.local.example?scheme=http",
		ChainID:   "c",
		DNSServer: addr,
	})
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, "http://127.0.0.1:1317", client.Endpoint())
}
