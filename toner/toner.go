// Package toner reads consumable levels from a printer over SNMP using the
// standard Printer-MIB (RFC 3805) supplies table.
package toner

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

// Printer-MIB prtMarkerSupplies column roots, walked as tables.
const (
	oidSuppliesDesc   = "1.3.6.1.2.1.43.11.1.1.6"
	oidSuppliesMaxCap = "1.3.6.1.2.1.43.11.1.1.8"
	oidSuppliesLevel  = "1.3.6.1.2.1.43.11.1.1.9"
	oidSuppliesClass  = "1.3.6.1.2.1.43.11.1.1.4"
)

// Supply class 3 is supplyThatIsConsumed (toner, ink); class 4 is
// receptacleThatIsFilled (waste containers), which the report excludes.
const classConsumed = 3

// Supply is one consumable reported by the device.
type Supply struct {
	Description string
	Level       int
	MaxCapacity int
	// Percent is the remaining level as a percentage, or -1 when the device
	// reports an unknown level (-2) or an unmeasurable capacity.
	Percent float64
}

// Walker is the SNMP surface Query needs; *gosnmp.GoSNMP satisfies it and
// tests substitute canned PDU sets.
type Walker interface {
	Walk(rootOid string, walkFn gosnmp.WalkFunc) error
}

// Connect opens an SNMP v2c session to the device.
func Connect(address, community string, timeout time.Duration) (*gosnmp.GoSNMP, error) {
	if community == "" {
		community = "public"
	}
	conn := &gosnmp.GoSNMP{
		Target:    address,
		Port:      161,
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   timeout,
		Retries:   1,
	}
	if err := conn.Connect(); err != nil {
		return nil, fmt.Errorf("SNMP connect to %s failed: %w", address, err)
	}
	return conn, nil
}

// Query walks the supplies table and returns consumables in stable order.
func Query(conn Walker) ([]Supply, error) {
	type entry struct {
		description string
		level       int
		maxCapacity int
		class       int
	}
	entries := make(map[string]*entry)

	get := func(instance string) *entry {
		e, ok := entries[instance]
		if !ok {
			e = &entry{level: -1, maxCapacity: -1, class: -1}
			entries[instance] = e
		}
		return e
	}

	walk := func(root string, apply func(e *entry, pdu gosnmp.SnmpPDU)) error {
		return conn.Walk(root, func(pdu gosnmp.SnmpPDU) error {
			instance := instanceSuffix(pdu.Name, root)
			if instance == "" {
				return nil
			}
			apply(get(instance), pdu)
			return nil
		})
	}

	if err := walk(oidSuppliesDesc, func(e *entry, pdu gosnmp.SnmpPDU) {
		e.description = coerceToString(pdu.Value)
	}); err != nil {
		return nil, fmt.Errorf("walking supplies descriptions failed: %w", err)
	}
	if err := walk(oidSuppliesLevel, func(e *entry, pdu gosnmp.SnmpPDU) {
		e.level = coerceToInt(pdu.Value)
	}); err != nil {
		return nil, fmt.Errorf("walking supplies levels failed: %w", err)
	}
	if err := walk(oidSuppliesMaxCap, func(e *entry, pdu gosnmp.SnmpPDU) {
		e.maxCapacity = coerceToInt(pdu.Value)
	}); err != nil {
		return nil, fmt.Errorf("walking supplies capacities failed: %w", err)
	}
	if err := walk(oidSuppliesClass, func(e *entry, pdu gosnmp.SnmpPDU) {
		e.class = coerceToInt(pdu.Value)
	}); err != nil {
		return nil, fmt.Errorf("walking supplies classes failed: %w", err)
	}

	instances := make([]string, 0, len(entries))
	for instance := range entries {
		instances = append(instances, instance)
	}
	sort.Slice(instances, func(i, j int) bool {
		a, aerr := strconv.Atoi(instances[i])
		b, berr := strconv.Atoi(instances[j])
		if aerr == nil && berr == nil {
			return a < b
		}
		return instances[i] < instances[j]
	})

	supplies := make([]Supply, 0, len(instances))
	for _, instance := range instances {
		e := entries[instance]
		if e.description == "" {
			continue
		}
		if e.class != -1 && e.class != classConsumed {
			continue
		}
		supplies = append(supplies, Supply{
			Description: e.description,
			Level:       e.level,
			MaxCapacity: e.maxCapacity,
			Percent:     percentage(e.level, e.maxCapacity),
		})
	}
	return supplies, nil
}

// percentage computes the remaining percentage from a level/capacity pair.
// Devices report -2 for unknown and sometimes a bare 0-100 level with no
// usable capacity.
func percentage(level, maxCapacity int) float64 {
	if maxCapacity > 0 && level >= 0 {
		return float64(level) / float64(maxCapacity) * 100.0
	}
	if level >= 0 && level <= 100 {
		return float64(level)
	}
	return -1
}

// instanceSuffix strips the column root (plus the ".1" sub-identifier of the
// entry row) from a walked OID, returning the table instance.
func instanceSuffix(oid, root string) string {
	oid = strings.TrimPrefix(oid, ".")
	root = strings.TrimPrefix(root, ".")
	if !strings.HasPrefix(oid, root+".") {
		return ""
	}
	suffix := strings.TrimPrefix(oid, root+".")
	// Column OIDs index as <root>.1.<instance>
	return strings.TrimPrefix(suffix, "1.")
}

func coerceToString(value interface{}) string {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	}
	return ""
}

func coerceToInt(value interface{}) int {
	switch v := value.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return -1
}
