package dns

import (
    "context"
    "net"
    "testing"

    mdns "github.com/miekg/dns"

    "github.com/amirimatin/go-nodegeo/pkg/peers"
)

func TestPassthrough(t *testing.T) {
    d := New(Options{Names: []string{"1.2.3.4", "5.6.7.8:30303", "1.2.3.4"}, Server: "127.0.0.1:1"})
    recs, err := d.Seeds(context.Background())
    if err != nil { t.Fatal(err) }
    got := peers.ExtractAddresses(recs)
    if len(got) != 2 || got[0] != "1.2.3.4" || got[1] != "5.6.7.8" {
        t.Fatalf("unexpected seeds: %#v", got)
    }
}

func TestAnswers(t *testing.T) {
    rrs := []mdns.RR{
        &mdns.A{Hdr: mdns.RR_Header{Name: "n.example.", Rrtype: mdns.TypeA}, A: net.ParseIP("10.0.0.1")},
        &mdns.AAAA{Hdr: mdns.RR_Header{Name: "n.example.", Rrtype: mdns.TypeAAAA}, AAAA: net.ParseIP("2001:db8::1")},
        &mdns.CNAME{Hdr: mdns.RR_Header{Name: "n.example.", Rrtype: mdns.TypeCNAME}, Target: "x.example."},
    }
    got := answers(rrs)
    if len(got) != 1 || got[0] != "10.0.0.1" {
        t.Fatalf("unexpected answers: %#v", got)
    }
}

func TestLocalServer(t *testing.T) {
    pc, err := net.ListenPacket("udp", "127.0.0.1:0")
    if err != nil { t.Skipf("udp listen: %v", err) }
    srv := &mdns.Server{PacketConn: pc, Handler: mdns.HandlerFunc(func(w mdns.ResponseWriter, r *mdns.Msg) {
        m := new(mdns.Msg)
        m.SetReply(r)
        if r.Question[0].Qtype == mdns.TypeA {
            m.Answer = append(m.Answer, &mdns.A{
                Hdr: mdns.RR_Header{Name: r.Question[0].Name, Rrtype: mdns.TypeA, Class: mdns.ClassINET, Ttl: 60},
                A:   net.ParseIP("10.1.2.3"),
            })
        }
        _ = w.WriteMsg(m)
    })}
    go func() { _ = srv.ActivateAndServe() }()
    defer srv.Shutdown()

    d := New(Options{Names: []string{"seeds.example"}, Server: pc.LocalAddr().String()})
    recs, err := d.Seeds(context.Background())
    if err != nil { t.Fatalf("seeds: %v", err) }
    got := peers.ExtractAddresses(recs)
    if len(got) != 1 || got[0] != "10.1.2.3" {
        t.Fatalf("unexpected seeds: %#v", got)
    }
}
