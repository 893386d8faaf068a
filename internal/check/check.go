// Package check orchestrates one scheduled-check invocation: it wires
// configuration, the cloud-API client, the fleet loader, the
// reconciliation engine, the metric emitter, and the logger together.
package check

import (
	"fmt"

	"github.com/mixi-inc/datadog-aws-ec2-counter/internal/cloudapi"
	"github.com/mixi-inc/datadog-aws-ec2-counter/internal/config"
	"github.com/mixi-inc/datadog-aws-ec2-counter/internal/fleet"
	"github.com/mixi-inc/datadog-aws-ec2-counter/internal/loader"
	"github.com/mixi-inc/datadog-aws-ec2-counter/internal/metrics"
	"github.com/mixi-inc/datadog-aws-ec2-counter/internal/obslog"
	"github.com/mixi-inc/datadog-aws-ec2-counter/internal/reconcile"
)

// Run performs a single check invocation against cfg.
//
// A missing region logs an error and returns cleanly with zero emissions.
// An unavailable reservation snapshot emits running metrics only, never
// reserved/ondemand/unused. Any other cloud-API or unknown-size error
// surfaces to the caller (the host agent).
func Run(cfg *config.Config, client cloudapi.Client, emitter metrics.Emitter, log obslog.Logger) error {
	if err := cfg.Validate(); err != nil {
		log.Error(err.Error())
		return nil
	}

	l := loader.New(client, cfg.Region)

	running, err := l.LoadRunning()
	if err != nil {
		return err
	}

	reserved, err := l.LoadReserved()
	if err != nil {
		if _, ok := err.(*loader.Unavailable); ok {
			log.Error(err.Error())
			emitFleet(emitter, log, "running", running, metrics.RunningCount, metrics.RunningFootprint)
			return nil
		}
		return err
	}

	emitFleet(emitter, log, "reserved", reserved, metrics.ReservedCount, metrics.ReservedFootprint)
	emitFleet(emitter, log, "running", running, metrics.RunningCount, metrics.RunningFootprint)

	ondemand, unused, err := reconcile.Reconcile(running, reserved)
	if err != nil {
		return err
	}

	emitFleet(emitter, log, "ondemand", ondemand, metrics.OndemandCount, metrics.OndemandFootprint)
	emitFleet(emitter, log, "reserved_unused", unused, metrics.ReservedUnusedCount, metrics.ReservedUnusedFoot)

	return nil
}

// emitFleet logs a phase header, then logs and emits one count/footprint
// gauge pair per entry, in the Fleet Map's stable enumeration order.
func emitFleet(emitter metrics.Emitter, log obslog.Logger, phase string, m *fleet.Map, countMetric, footprintMetric string) {
	log.Info(phase)
	for _, e := range m.Enumerate("") {
		count, footprint := e.Counter.Count(), e.Counter.Footprint()
		log.Info("%s : %s.%s = %v (%v)", e.Zone, e.Family, e.Size, count, footprint)

		tags := map[string]string{
			metrics.TagZone:   e.Zone,
			metrics.TagType:   fmt.Sprintf("%s.%s", e.Family, e.Size),
			metrics.TagFamily: e.Family,
		}
		emitter.Gauge(countMetric, count, tags)
		emitter.Gauge(footprintMetric, footprint, tags)
	}
}
