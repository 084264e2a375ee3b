// Package discovery finds printers on the local network via mDNS/DNS-SD.
package discovery

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"printadmin/logger"
)

// Printer service types advertised over DNS-SD.
var serviceTypes = []string{"_ipp._tcp", "_ipps._tcp", "_printer._tcp"}

// Printers browses the local domain for printer services for the given wait
// duration and returns the deduplicated, sorted set of IPv4 addresses found.
// An empty result is not an error; resolver failures are.
func Printers(ctx context.Context, wait time.Duration, log *logger.Logger) ([]string, error) {
	browseCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	var mu sync.Mutex
	seen := make(map[string]bool)
	var firstErr error

	record := func(serviceType string, entry *zeroconf.ServiceEntry) {
		mu.Lock()
		defer mu.Unlock()
		for _, addr := range entryAddresses(entry) {
			if !seen[addr] {
				log.Debug("printer discovered", "service", serviceType, "address", addr, "instance", entry.Instance)
			}
			seen[addr] = true
		}
	}

	// Browse returns once browsing is set up; each entries channel is closed
	// when the context expires, so the consumers bound the collection.
	var consumers sync.WaitGroup
	for _, serviceType := range serviceTypes {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			log.Warn("mDNS resolver error", "service", serviceType, "error", err.Error())
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		entries := make(chan *zeroconf.ServiceEntry)
		consumers.Add(1)
		go func(serviceType string) {
			defer consumers.Done()
			for entry := range entries {
				record(serviceType, entry)
			}
		}(serviceType)

		log.Debug("mDNS browse start", "service", serviceType)
		if err := resolver.Browse(browseCtx, serviceType, "local.", entries); err != nil {
			log.Warn("mDNS browse error", "service", serviceType, "error", err.Error())
			if firstErr == nil {
				firstErr = err
			}
			// Browse failed before taking ownership of the channel; close it
			// so the consumer exits.
			close(entries)
		}
	}
	consumers.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return sortedKeys(seen), nil
}

// entryAddresses extracts the usable IPv4 addresses from a service entry.
func entryAddresses(entry *zeroconf.ServiceEntry) []string {
	addrs := make([]string, 0, len(entry.AddrIPv4))
	for _, ip := range entry.AddrIPv4 {
		if ip == nil || ip.IsUnspecified() {
			continue
		}
		addrs = append(addrs, ip.String())
	}
	return addrs
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
