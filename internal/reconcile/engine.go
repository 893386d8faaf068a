// Package reconcile nets running instances against reserved capacity:
// given running and reserved fleet maps, it produces on-demand and
// reserved-unused fleet maps, applying per-AZ netting, region-scoped
// netting, and cross-size footprint redistribution under instance-size
// flexibility. The engine is pure: no I/O, no retries, no logging.
package reconcile

import (
	"github.com/mixi-inc/datadog-aws-ec2-counter/internal/fleet"
)

// Reconcile runs phases A, B, and C over running and reserved, returning the
// on-demand and reserved-unused Fleet Maps.
func Reconcile(running, reserved *fleet.Map) (ondemand, unused *fleet.Map, err error) {
	ondemand = fleet.New()
	unused = fleet.New()

	if err := seedRegionUnused(reserved, unused); err != nil {
		return nil, nil, err
	}
	if err := netPerAZ(running, reserved, ondemand, unused); err != nil {
		return nil, nil, err
	}
	if err := redistributeFootprint(unused, ondemand); err != nil {
		return nil, nil, err
	}
	return ondemand, unused, nil
}

// Phase A — seed unused with region-scoped reservations: for every
// (family, size) present in reserved under the region sentinel, set
// unused[region, family, size].count = reserved[region, family, size].count.
func seedRegionUnused(reserved, unused *fleet.Map) error {
	for _, e := range reserved.Enumerate(fleet.Region) {
		u, err := unused.Get(fleet.Region, e.Family, e.Size)
		if err != nil {
			return err
		}
		u.SetCount(e.Counter.Count())
	}
	return nil
}

// Phase B — per-AZ netting: enumerate running in stable order, net each
// entry first against its matching AZ-scoped reservation, then against the
// region-scoped unused pool seeded in phase A; the residual becomes
// on-demand.
func netPerAZ(running, reserved, ondemand, unused *fleet.Map) error {
	for _, e := range running.Enumerate("") {
		c := e.Counter.Count()

		if reserved.Has(e.Zone, e.Family, e.Size) {
			rc, err := reserved.Get(e.Zone, e.Family, e.Size)
			if err != nil {
				return err
			}
			c -= rc.Count()
			azUnused, err := unused.Get(e.Zone, e.Family, e.Size)
			if err != nil {
				return err
			}
			if c <= 0 {
				azUnused.SetCount(-c)
				c = 0
			} else {
				azUnused.SetCount(0)
			}
		}

		if unused.Has(fleet.Region, e.Family, e.Size) && c > 0 {
			regionUnused, err := unused.Get(fleet.Region, e.Family, e.Size)
			if err != nil {
				return err
			}
			remaining := c - regionUnused.Count()
			if remaining <= 0 {
				regionUnused.SetCount(-remaining)
				c = 0
			} else {
				regionUnused.SetCount(0)
				c = remaining
			}
		}

		od, err := ondemand.Get(e.Zone, e.Family, e.Size)
		if err != nil {
			return err
		}
		od.SetCount(c)
	}
	return nil
}

// Phase C — cross-size footprint redistribution: for each region-scoped
// unused entry with nonzero footprint, absorb on-demand footprint from
// candidates sharing the same family, smallest size first, zones in stable
// (lexicographic) order.
func redistributeFootprint(unused, ondemand *fleet.Map) error {
	for _, u := range unused.Enumerate(fleet.Region) {
		if u.Counter.Footprint() == 0 {
			continue
		}
		family := u.Family
		for _, size := range ondemand.SizesIn("", family) {
			if u.Counter.Footprint() == 0 {
				break
			}
			for _, zone := range ondemand.Zones() {
				if u.Counter.Footprint() == 0 {
					break
				}
				if !ondemand.Has(zone, family, size) {
					continue
				}
				o, err := ondemand.Get(zone, family, size)
				if err != nil {
					return err
				}
				if o.Footprint() == 0 {
					continue
				}

				uf, of := u.Counter.Footprint(), o.Footprint()
				if of >= uf {
					o.SetFootprint(of - uf)
					u.Counter.SetFootprint(0)
				} else {
					u.Counter.SetFootprint(uf - of)
					o.SetFootprint(0)
				}
			}
		}
	}
	return nil
}
