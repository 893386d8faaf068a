// Package cloudapi defines the Cloud-API collaborator the Fleet Loader
// consumes, plus an aws-sdk-go backed implementation against EC2.
package cloudapi

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"
)

// RunningInstance is one raw record from describe_running.
type RunningInstance struct {
	Zone         string
	InstanceType string
	SpotID       string // empty unless this is a spot request
	Platform     string // empty means the default (Linux/UNIX) platform
}

// ReservedInstance is one raw record from describe_reserved.
type ReservedInstance struct {
	ID           string
	Scope        string // "Availability Zone" or "Region"
	Zone         string // only meaningful when Scope == "Availability Zone"
	InstanceType string
	Count        int64
}

// Modification is one raw record from describe_modifications.
type Modification struct {
	Results []ModificationResult
}

// ModificationResult is one result sub-record of a Modification.
type ModificationResult struct {
	NewReservationID    string
	HasNewReservationID bool // false while the target reservation isn't materialized yet
}

// Client is the cloud-API surface the fleet loader consumes. A single
// check invocation owns exactly one Client; it is not reused across checks.
type Client interface {
	// DescribeRunning paginates the provider's describe-running-instances
	// call, invoking fn once per page of records. Pagination stops when fn
	// returns an error or the provider reports no further pages.
	DescribeRunning(region string, fn func([]RunningInstance) error) error

	// DescribeReserved returns all active AZ- or region-scoped reservations
	// for region with product description Linux/UNIX and default tenancy.
	DescribeReserved(region string) ([]ReservedInstance, error)

	// DescribeModifications returns the processing modifications for a
	// single reservation id.
	DescribeModifications(region, reservationID string) ([]Modification, error)
}

const pageSize = 100

// ec2Client implements Client against the real AWS EC2 API.
type ec2Client struct {
	sess *session.Session
}

// NewEC2Client builds a Client backed by aws-sdk-go's ec2 service, using the
// standard AWS credential discovery chain (AWS_ACCESS_KEY, AWS_SECRET_KEY,
// shared config, instance profile, ...). The region passed on each call
// overrides the session's default.
func NewEC2Client() (Client, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}
	return &ec2Client{sess: sess}, nil
}

func (c *ec2Client) svc(region string) *ec2.EC2 {
	if region == "" {
		return ec2.New(c.sess)
	}
	return ec2.New(c.sess, aws.NewConfig().WithRegion(region))
}

func (c *ec2Client) DescribeRunning(region string, fn func([]RunningInstance) error) error {
	input := &ec2.DescribeInstancesInput{
		Filters: []*ec2.Filter{
			{Name: aws.String("instance-state-name"), Values: []*string{aws.String("running")}},
			{Name: aws.String("tenancy"), Values: []*string{aws.String("default")}},
		},
		MaxResults: aws.Int64(pageSize),
	}

	svc := c.svc(region)
	for {
		resp, err := svc.DescribeInstancesWithContext(context.Background(), input)
		if err != nil {
			return &Error{Op: "DescribeInstances", Err: err}
		}

		var page []RunningInstance
		for _, r := range resp.Reservations {
			for _, inst := range r.Instances {
				ri := RunningInstance{
					Zone:         aws.StringValue(inst.Placement.AvailabilityZone),
					InstanceType: aws.StringValue(inst.InstanceType),
					SpotID:       aws.StringValue(inst.SpotInstanceRequestId),
					Platform:     aws.StringValue(inst.Platform),
				}
				page = append(page, ri)
			}
		}
		if err := fn(page); err != nil {
			return err
		}

		if resp.NextToken == nil || *resp.NextToken == "" {
			return nil
		}
		input.NextToken = resp.NextToken
	}
}

func (c *ec2Client) DescribeReserved(region string) ([]ReservedInstance, error) {
	resp, err := c.svc(region).DescribeReservedInstancesWithContext(context.Background(), &ec2.DescribeReservedInstancesInput{
		Filters: []*ec2.Filter{
			{Name: aws.String("state"), Values: []*string{aws.String("active")}},
			{Name: aws.String("product-description"), Values: []*string{aws.String("Linux/UNIX")}},
			{Name: aws.String("instance-tenancy"), Values: []*string{aws.String("default")}},
		},
	})
	if err != nil {
		return nil, &Error{Op: "DescribeReservedInstances", Err: err}
	}

	out := make([]ReservedInstance, 0, len(resp.ReservedInstances))
	for _, r := range resp.ReservedInstances {
		out = append(out, ReservedInstance{
			ID:           aws.StringValue(r.ReservedInstancesId),
			Scope:        aws.StringValue(r.Scope),
			Zone:         aws.StringValue(r.AvailabilityZone),
			InstanceType: aws.StringValue(r.InstanceType),
			Count:        aws.Int64Value(r.InstanceCount),
		})
	}
	return out, nil
}

func (c *ec2Client) DescribeModifications(region, reservationID string) ([]Modification, error) {
	resp, err := c.svc(region).DescribeReservedInstancesModificationsWithContext(context.Background(), &ec2.DescribeReservedInstancesModificationsInput{
		Filters: []*ec2.Filter{
			{Name: aws.String("status"), Values: []*string{aws.String("processing")}},
			{Name: aws.String("reserved-instances-id"), Values: []*string{aws.String(reservationID)}},
		},
	})
	if err != nil {
		return nil, &Error{Op: "DescribeReservedInstancesModifications", Err: err}
	}

	out := make([]Modification, 0, len(resp.ReservedInstancesModifications))
	for _, mod := range resp.ReservedInstancesModifications {
		m := Modification{}
		for _, res := range mod.ModificationResults {
			m.Results = append(m.Results, ModificationResult{
				NewReservationID:    aws.StringValue(res.ReservedInstancesId),
				HasNewReservationID: res.ReservedInstancesId != nil,
			})
		}
		out = append(out, m)
	}
	return out, nil
}

// Error wraps a provider-side failure. It is not recovered locally; it
// surfaces to the host agent, whose scheduler re-runs the check.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "cloudapi: " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
