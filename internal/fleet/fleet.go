// Package fleet implements the Fleet Map: an in-memory, lazily-populated
// container of per-(zone, family, size) counters, enumerable in a stable,
// deterministic order.
package fleet

import (
	"sort"

	"github.com/mixi-inc/datadog-aws-ec2-counter/internal/sizecatalog"
)

// Region is the sentinel zone value for region-scoped reservations.
const Region = "region"

// Counter is a (normalization factor, count) pair. Footprint is derived:
// footprint = count * nf.
type Counter struct {
	nf    float64
	count float64
}

// NF returns the counter's normalization factor.
func (c *Counter) NF() float64 { return c.nf }

// Count returns the current count.
func (c *Counter) Count() float64 { return c.count }

// SetCount overwrites the count directly.
func (c *Counter) SetCount(count float64) { c.count = count }

// AddCount adds n to the count (n may be negative).
func (c *Counter) AddCount(n float64) { c.count += n }

// Footprint returns count * nf.
func (c *Counter) Footprint() float64 { return c.count * c.nf }

// SetFootprint rescales the count so that Footprint() == footprint.
func (c *Counter) SetFootprint(footprint float64) { c.count = footprint / c.nf }

// Map is a partial mapping Zone -> Family -> Size -> *Counter.
type Map struct {
	zones map[string]map[string]map[string]*Counter
}

// New returns an empty Fleet Map.
func New() *Map {
	return &Map{zones: make(map[string]map[string]map[string]*Counter)}
}

// Has reports whether (zone, family, size) has been created, without
// creating it.
func (m *Map) Has(zone, family, size string) bool {
	families, ok := m.zones[zone]
	if !ok {
		return false
	}
	sizes, ok := families[family]
	if !ok {
		return false
	}
	_, ok = sizes[size]
	return ok
}

// Get returns the counter at (zone, family, size), creating a
// zero-initialized one (with the correct normalization factor) if absent.
// The same *Counter is returned for repeated lookups of the same triple.
func (m *Map) Get(zone, family, size string) (*Counter, error) {
	families, ok := m.zones[zone]
	if !ok {
		families = make(map[string]map[string]*Counter)
		m.zones[zone] = families
	}
	sizes, ok := families[family]
	if !ok {
		sizes = make(map[string]*Counter)
		families[family] = sizes
	}
	c, ok := sizes[size]
	if ok {
		return c, nil
	}
	nf, err := sizecatalog.FactorOf(size)
	if err != nil {
		return nil, err
	}
	c = &Counter{nf: nf}
	sizes[size] = c
	return c, nil
}

// Zones returns the known zones, sorted lexicographically.
func (m *Map) Zones() []string {
	out := make([]string, 0, len(m.zones))
	for z := range m.zones {
		out = append(out, z)
	}
	sort.Strings(out)
	return out
}

// Families returns the families known within zone, sorted lexicographically.
// Returns nil if zone is unknown.
func (m *Map) Families(zone string) []string {
	families, ok := m.zones[zone]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(families))
	for f := range families {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// SizesIn returns the sizes present under (zone, family) in Size Catalog
// order. When zone is "" (unspecified), it returns the union of sizes
// present in any zone under family, still in catalog order.
func (m *Map) SizesIn(zone, family string) []string {
	present := make(map[string]bool)
	if zone != "" {
		if families, ok := m.zones[zone]; ok {
			for s := range families[family] {
				present[s] = true
			}
		}
	} else {
		for _, families := range m.zones {
			for s := range families[family] {
				present[s] = true
			}
		}
	}

	var out []string
	for _, s := range sizecatalog.SizesInOrder() {
		if present[s] {
			out = append(out, s)
		}
	}
	return out
}

// Entry is one (zone, family, size, counter) row produced by Enumerate.
type Entry struct {
	Zone    string
	Family  string
	Size    string
	Counter *Counter
}

// Enumerate yields (zone, family, size, counter) rows in stable order: zones
// sorted lexicographically, families sorted lexicographically within a zone,
// sizes in Size Catalog order within a family. When zone is non-empty, only
// that zone's rows are emitted.
func (m *Map) Enumerate(zone string) []Entry {
	var out []Entry
	zones := m.Zones()
	if zone != "" {
		zones = []string{zone}
	}
	for _, z := range zones {
		families, ok := m.zones[z]
		if !ok {
			continue
		}
		fnames := make([]string, 0, len(families))
		for f := range families {
			fnames = append(fnames, f)
		}
		sort.Strings(fnames)
		for _, f := range fnames {
			for _, s := range m.SizesIn(z, f) {
				out = append(out, Entry{Zone: z, Family: f, Size: s, Counter: families[f][s]})
			}
		}
	}
	return out
}
