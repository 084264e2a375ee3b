package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestEntryAddresses(t *testing.T) {
	t.Parallel()

	entry := &zeroconf.ServiceEntry{
		AddrIPv4: []net.IP{
			net.ParseIP("192.0.2.10"),
			net.IPv4zero,
			nil,
			net.ParseIP("192.0.2.11"),
		},
	}

	got := entryAddresses(entry)
	want := []string{"192.0.2.10", "192.0.2.11"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSortedKeysDeduplicates(t *testing.T) {
	t.Parallel()

	set := map[string]bool{
		"192.0.2.20": true,
		"192.0.2.3":  true,
		"192.0.2.10": true,
	}
	got := sortedKeys(set)
	if len(got) != 3 {
		t.Fatalf("expected 3 addresses, got %v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("addresses not sorted: %v", got)
		}
	}
}
