package earnings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDefaults(t *testing.T) {
	s := Compute(DefaultConfig())

	assert.Equal(t, 127.37, s.Net)
	assert.Equal(t, 34.09, s.HourlyAverage)
	assert.Equal(t, 10.42, s.AverageFare)
	assert.Equal(t, 73, s.TargetProgress)

	require.Len(t, s.Stats, 4)
	assert.Equal(t, Stat{"Today's Earnings", "$187.50", "+12.5%"}, s.Stats[0])
	assert.Equal(t, Stat{"Active Hours", "5.5h", "2h remaining"}, s.Stats[1])
	assert.Equal(t, Stat{"Trips Completed", "18", "+3 this hour"}, s.Stats[2])
	assert.Equal(t, Stat{"Avg. Fare", "$10.42", "+8.2%"}, s.Stats[3])
}

func TestComputeZeroDivisors(t *testing.T) {
	s := Compute(Config{Gross: 50})
	assert.Equal(t, 50.0, s.Net)
	assert.Zero(t, s.HourlyAverage)
	assert.Zero(t, s.AverageFare)
	assert.Zero(t, s.TargetProgress)
	assert.Equal(t, "0h remaining", s.Stats[1].Change)
}

func TestComputeNegativeChange(t *testing.T) {
	c := DefaultConfig()
	c.GrossChange = -4
	assert.Equal(t, "-4.0%", Compute(c).Stats[0].Change)
}
