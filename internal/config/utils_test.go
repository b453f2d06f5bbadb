package config

import (
	"math"
	"testing"
	"time"

	"github.com/FerroO2000/framering/internal"
	"github.com/stretchr/testify/assert"
)

type testConfig struct {
	Threshold float64
	Bound     uint64
	Factor    float64
	Interval  time.Duration
	Name      string
}

func (c *testConfig) Validate(ac *AnomalyCollector) {
	CheckNotNaN(ac, "Threshold", &c.Threshold, 0.75)
	CheckNotNegative(ac, "Threshold", &c.Threshold, 0.75)
	CheckNotZero(ac, "Threshold", &c.Threshold, 0.75)
	CheckNotGreaterThan(ac, "Threshold", "1", &c.Threshold, 1.0)

	CheckNotZero(ac, "Bound", &c.Bound, 6)
	CheckNotNaN(ac, "Factor", &c.Factor, 0.5)
	CheckNotGreaterThan(ac, "Factor", "1", &c.Factor, 1.0)
	CheckNotNegative(ac, "Interval", &c.Interval, time.Second)
	CheckNotEmpty(ac, "Name", &c.Name, "default")
}

func anomalyFields(ac *AnomalyCollector) []string {
	fields := make([]string, 0, ac.Len())
	for _, an := range ac.anomalies {
		fields = append(fields, an.field)
	}
	return fields
}

func Test_Checks(t *testing.T) {
	assert := assert.New(t)

	cfg := &testConfig{
		Threshold: 1.5,
		Bound:     0,
		Factor:    math.NaN(),
		Interval:  -time.Second,
	}

	ac := newAnomalyCollector()
	cfg.Validate(ac)

	assert.Equal(1.0, cfg.Threshold)
	assert.Equal(uint64(6), cfg.Bound)
	assert.Equal(0.5, cfg.Factor)
	assert.Equal(time.Second, cfg.Interval)
	assert.Equal("default", cfg.Name)

	assert.Equal([]string{"Threshold", "Bound", "Factor", "Interval", "Name"}, anomalyFields(ac))
}

func Test_Checks_validConfig(t *testing.T) {
	cfg := &testConfig{
		Threshold: 0.8,
		Bound:     4,
		Factor:    0.2,
		Interval:  time.Millisecond,
		Name:      "ring",
	}

	ac := newAnomalyCollector()
	cfg.Validate(ac)

	assert.Zero(t, ac.Len())
}

func Test_CheckNotNaN(t *testing.T) {
	assert := assert.New(t)

	ac := newAnomalyCollector()

	// A NaN would pass every comparison based check
	nan := math.NaN()
	CheckNotNegative(ac, "Value", &nan, 0.5)
	CheckNotZero(ac, "Value", &nan, 0.5)
	CheckNotGreaterThan(ac, "Value", "1", &nan, 1.0)
	assert.Zero(ac.Len())
	assert.True(math.IsNaN(nan))

	CheckNotNaN(ac, "Value", &nan, 0.5)
	assert.Equal(0.5, nan)
	assert.Equal([]string{"Value"}, anomalyFields(ac))

	// A number is left untouched
	val := 0.3
	CheckNotNaN(ac, "Other", &val, 0.5)
	assert.Equal(0.3, val)
	assert.Equal(1, ac.Len())
}

func Test_Validator(t *testing.T) {
	assert := assert.New(t)

	validator := NewValidator(internal.NewTelemetry("test", "validator"))

	assert.Equal(2, validator.Validate(&testConfig{Threshold: 0.5, Bound: 0, Name: ""}))
	assert.Zero(validator.Validate(&testConfig{Threshold: 0.5, Bound: 1, Name: "ok"}))
}
