package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsMetricPrefix(t *testing.T) {
	c, err := Load([]byte("region: us-east-1\n"))
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", c.Region)
	assert.Equal(t, "aws_ec2_count", c.MetricPrefix)
}

func TestLoadHonorsExplicitMetricPrefix(t *testing.T) {
	c, err := Load([]byte("region: us-east-1\nmetric_prefix: aws_ec2_count_1\n"))
	require.NoError(t, err)
	assert.Equal(t, "aws_ec2_count_1", c.MetricPrefix)
}

func TestLoadFallsBackToAWSRegionEnv(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-west-1")
	c, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", c.Region)
}

func TestValidateMissingRegion(t *testing.T) {
	c := &Config{}
	err := c.Validate()
	require.Error(t, err)
	assert.Equal(t, "no region", err.Error())
}

func TestValidateOK(t *testing.T) {
	c := &Config{Region: "us-east-1"}
	assert.NoError(t, c.Validate())
}
