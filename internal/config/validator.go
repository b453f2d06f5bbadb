package config

import (
	"github.com/FerroO2000/framering/internal"
)

// Validator is an utility struct for validating a configuration.
type Validator struct {
	tel *internal.Telemetry

	anomalyCollector *AnomalyCollector
}

// NewValidator returns a new validator.
func NewValidator(tel *internal.Telemetry) *Validator {
	return &Validator{
		tel: tel,

		anomalyCollector: newAnomalyCollector(),
	}
}

// Validate validates the given configuration.
// Every anomaly found is logged as a warning and the offending
// field is replaced by its fallback value.
// It returns the number of anomalies found.
func (m *Validator) Validate(config Config) int {
	start := m.anomalyCollector.Len()

	config.Validate(m.anomalyCollector)

	for _, anomaly := range m.anomalyCollector.anomalies[start:] {
		m.handleAnomaly(anomaly)
	}

	return m.anomalyCollector.Len() - start
}

func (m *Validator) handleAnomaly(an *anomaly) {
	m.tel.LogWarn("config anomaly",
		"field", an.field, "reason", an.reason,
		"actual", an.actual, "fallback", an.fallback)
}
