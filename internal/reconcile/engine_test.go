package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixi-inc/datadog-aws-ec2-counter/internal/fleet"
)

func set(t *testing.T, m *fleet.Map, zone, family, size string, count float64) {
	t.Helper()
	c, err := m.Get(zone, family, size)
	require.NoError(t, err)
	c.SetCount(count)
}

func assertCount(t *testing.T, m *fleet.Map, zone, family, size string, want float64) {
	t.Helper()
	c, err := m.Get(zone, family, size)
	require.NoError(t, err)
	assert.Equal(t, want, c.Count(), "%s/%s/%s count", zone, family, size)
}

func assertFootprint(t *testing.T, m *fleet.Map, zone, family, size string, want float64) {
	t.Helper()
	c, err := m.Get(zone, family, size)
	require.NoError(t, err)
	assert.InDelta(t, want, c.Footprint(), 1e-9, "%s/%s/%s footprint", zone, family, size)
}

func TestReconcilePerAZNet(t *testing.T) {
	running := fleet.New()
	set(t, running, "region-1a", "c4", "large", 5)
	set(t, running, "region-1b", "c4", "large", 10)
	set(t, running, "region-1b", "c4", "xlarge", 10)

	reserved := fleet.New()
	set(t, reserved, "region-1a", "c4", "large", 10)
	set(t, reserved, "region-1b", "c4", "large", 5)

	ondemand, unused, err := Reconcile(running, reserved)
	require.NoError(t, err)

	assertCount(t, ondemand, "region-1a", "c4", "large", 0)
	assertCount(t, ondemand, "region-1b", "c4", "large", 5)
	assertCount(t, ondemand, "region-1b", "c4", "xlarge", 10)

	assertCount(t, unused, "region-1a", "c4", "large", 5)
	assertCount(t, unused, "region-1b", "c4", "large", 0)
}

func TestReconcileRegionOversupply(t *testing.T) {
	running := fleet.New()
	set(t, running, "region-1a", "c4", "small", 1)
	set(t, running, "region-1a", "c4", "medium", 1)
	set(t, running, "region-1a", "c4", "large", 1)
	set(t, running, "region-1b", "c4", "large", 1)

	reserved := fleet.New()
	set(t, reserved, fleet.Region, "c4", "large", 3)

	ondemand, unused, err := Reconcile(running, reserved)
	require.NoError(t, err)

	for _, e := range ondemand.Enumerate("") {
		assert.Zerof(t, e.Counter.Count(), "%s/%s/%s should be fully absorbed", e.Zone, e.Family, e.Size)
	}

	assertCount(t, unused, fleet.Region, "c4", "large", 0.25)
	assertFootprint(t, unused, fleet.Region, "c4", "large", 1.0)
}

func TestReconcileRegionCrossSizeSmallestFirst(t *testing.T) {
	running := fleet.New()
	set(t, running, "region-1a", "c4", "small", 1)
	set(t, running, "region-1a", "c4", "medium", 1)
	set(t, running, "region-1a", "c4", "large", 1)
	set(t, running, "region-1b", "c4", "small", 2)
	set(t, running, "region-1b", "c4", "medium", 1)
	set(t, running, "region-1b", "c4", "large", 1)

	reserved := fleet.New()
	set(t, reserved, fleet.Region, "c4", "large", 3)

	ondemand, unused, err := Reconcile(running, reserved)
	require.NoError(t, err)

	assertCount(t, ondemand, "region-1a", "c4", "small", 0)
	assertCount(t, ondemand, "region-1a", "c4", "medium", 0.5)
	assertCount(t, ondemand, "region-1a", "c4", "large", 0)
	assertCount(t, ondemand, "region-1b", "c4", "small", 0)
	assertCount(t, ondemand, "region-1b", "c4", "medium", 1)
	assertCount(t, ondemand, "region-1b", "c4", "large", 0)

	assertCount(t, unused, fleet.Region, "c4", "large", 0)
}

// Hybrid AZ + region reservations for the same family: AZ netting runs
// before region absorption, and region footprint redistribution never
// drives any count below zero.
func TestReconcileHybridAZAndRegion(t *testing.T) {
	running := fleet.New()
	set(t, running, "region-1a", "c4", "medium", 10) // footprint 20
	set(t, running, "region-1a", "c4", "large", 4)   // footprint 16
	set(t, running, "region-1a", "c4", "xlarge", 5)
	set(t, running, "region-1b", "c4", "medium", 4) // footprint 8
	set(t, running, "region-1b", "c4", "large", 2)
	set(t, running, "region-1b", "c4", "xlarge", 10)

	reserved := fleet.New()
	set(t, reserved, fleet.Region, "c4", "xlarge", 10)
	set(t, reserved, "region-1a", "c4", "xlarge", 10)
	set(t, reserved, "region-1b", "c4", "xlarge", 5)

	ondemand, unused, err := Reconcile(running, reserved)
	require.NoError(t, err)

	assertCount(t, ondemand, "region-1a", "c4", "medium", 0)
	assertFootprint(t, ondemand, "region-1a", "c4", "large", 4)
	assertCount(t, ondemand, "region-1a", "c4", "large", 1)
	assertCount(t, ondemand, "region-1a", "c4", "xlarge", 0)
	assertCount(t, ondemand, "region-1b", "c4", "medium", 0)
	assertCount(t, ondemand, "region-1b", "c4", "large", 2)
	assertCount(t, ondemand, "region-1b", "c4", "xlarge", 0)

	assertCount(t, unused, fleet.Region, "c4", "xlarge", 0)
	assertCount(t, unused, "region-1a", "c4", "xlarge", 5)
	assertCount(t, unused, "region-1b", "c4", "xlarge", 0)

	for _, e := range ondemand.Enumerate("") {
		assert.GreaterOrEqual(t, e.Counter.Count(), 0.0)
	}
}

// Footprint conservation across phase C: every unit of footprint that
// leaves the region-scoped unused pool reappears as a reduction of
// on-demand footprint, and vice versa.
func TestFootprintConservationAcrossPhaseC(t *testing.T) {
	running := fleet.New()
	set(t, running, "region-1a", "c4", "small", 1)
	set(t, running, "region-1a", "c4", "medium", 1)
	set(t, running, "region-1a", "c4", "large", 1)
	set(t, running, "region-1b", "c4", "large", 1)

	reserved := fleet.New()
	set(t, reserved, fleet.Region, "c4", "large", 3)

	ondemand, unused, err := Reconcile(running, reserved)
	require.NoError(t, err)

	// Entering phase C: the per-size region netting of phase B leaves
	// on-demand at small=1 (fp 1) and medium=1 (fp 2), total 3, and the
	// region pool at 1 large (fp 4).
	const ondemandBefore, unusedBefore = 3.0, 4.0

	var ondemandAfter, unusedAfter float64
	for _, e := range ondemand.Enumerate("") {
		ondemandAfter += e.Counter.Footprint()
	}
	for _, e := range unused.Enumerate(fleet.Region) {
		unusedAfter += e.Counter.Footprint()
	}

	assert.InDelta(t, 0.0, ondemandAfter, 1e-9)
	assert.InDelta(t, 1.0, unusedAfter, 1e-9)
	assert.InDelta(t, ondemandBefore-ondemandAfter, unusedBefore-unusedAfter, 1e-9,
		"footprint consumed from on-demand must equal footprint drained from the region pool")
}
