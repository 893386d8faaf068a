// Package loader consumes raw records from the cloud-API client and
// materializes fleet maps for running and reserved capacity, applying the
// inclusion filters and the in-flight modification gate.
package loader

import (
	"strings"

	"github.com/mixi-inc/datadog-aws-ec2-counter/internal/cloudapi"
	"github.com/mixi-inc/datadog-aws-ec2-counter/internal/fleet"
)

// Loader fetches fleet snapshots for a single region from a Cloud-API
// client. One Loader is scoped to a single check invocation.
type Loader struct {
	Client cloudapi.Client
	Region string
}

// New returns a Loader scoped to region, using client as its Cloud-API
// collaborator.
func New(client cloudapi.Client, region string) *Loader {
	return &Loader{Client: client, Region: region}
}

// LoadRunning paginates the provider's describe-running-instances call and
// returns the populated fleet map. Spot instances and non-default
// platforms are excluded.
func (l *Loader) LoadRunning() (*fleet.Map, error) {
	out := fleet.New()

	err := l.Client.DescribeRunning(l.Region, func(page []cloudapi.RunningInstance) error {
		for _, r := range page {
			if r.SpotID != "" {
				continue
			}
			if r.Platform != "" {
				continue
			}
			family, size, err := splitInstanceType(r.InstanceType)
			if err != nil {
				return err
			}
			counter, err := out.Get(r.Zone, family, size)
			if err != nil {
				return err
			}
			counter.AddCount(1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Unavailable is the sentinel returned by LoadReserved when the in-flight
// modification gate trips. Callers must skip this run's
// reservation-dependent metrics rather than report misleading numbers.
type Unavailable struct{}

func (*Unavailable) Error() string {
	return "reservation snapshot unavailable: a modification is in flight whose target reservation is not yet materialized"
}

// LoadReserved fetches all active AZ- or region-scoped reservations and
// returns the populated fleet map, or an *Unavailable error if the
// in-flight modification gate trips.
func (l *Loader) LoadReserved() (*fleet.Map, error) {
	reservations, err := l.Client.DescribeReserved(l.Region)
	if err != nil {
		return nil, err
	}

	out := fleet.New()
	for _, r := range reservations {
		mods, err := l.Client.DescribeModifications(l.Region, r.ID)
		if err != nil {
			return nil, err
		}

		if len(mods) > 0 {
			// In-flight gate: two distinct outcomes. If any modification
			// result is missing its new-reservation id, the target
			// reservation hasn't materialized yet and the whole snapshot
			// is unusable. Otherwise this reservation is the source side
			// of an already-committed migration; skip it only, since the
			// target reservation is itself visible elsewhere in the list.
			for _, mod := range mods {
				for _, res := range mod.Results {
					if !res.HasNewReservationID {
						return nil, &Unavailable{}
					}
				}
			}
			continue
		}

		family, size, err := splitInstanceType(r.InstanceType)
		if err != nil {
			return nil, err
		}

		zone := r.Zone
		if r.Scope == "Region" {
			zone = fleet.Region
		}

		counter, err := out.Get(zone, family, size)
		if err != nil {
			return nil, err
		}
		counter.AddCount(float64(r.Count))
	}
	return out, nil
}

func splitInstanceType(instanceType string) (family, size string, err error) {
	parts := strings.SplitN(instanceType, ".", 2)
	if len(parts) != 2 {
		return "", "", &InvalidInstanceTypeError{InstanceType: instanceType}
	}
	return parts[0], parts[1], nil
}

// InvalidInstanceTypeError is returned when a raw record's instance type
// does not have the family.size shape.
type InvalidInstanceTypeError struct {
	InstanceType string
}

func (e *InvalidInstanceTypeError) Error() string {
	return "invalid instance type: " + e.InstanceType
}
