package domain

// HealthStatus is the per-tick health classification.
type HealthStatus int

const (
	HealthNominal HealthStatus = iota
	HealthWarning
	HealthCritical
)

// String returns a human-readable representation of the status.
func (h HealthStatus) String() string {
	switch h {
	case HealthNominal:
		return "NOMINAL"
	case HealthWarning:
		return "WARNING"
	case HealthCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// FaultCode identifies one active fault condition.
type FaultCode string

const (
	FaultSOCLowWarn     FaultCode = "SOC_LOW_WARN"
	FaultSOCLowCrit     FaultCode = "SOC_LOW_CRIT"
	FaultSOCHighWarn    FaultCode = "SOC_HIGH_WARN"
	FaultSOCHighCrit    FaultCode = "SOC_HIGH_CRIT"
	FaultVoltageLow     FaultCode = "VOLTAGE_LOW"
	FaultVoltageHigh    FaultCode = "VOLTAGE_HIGH"
	FaultCurrentHigh    FaultCode = "CURRENT_HIGH"
	FaultCurrentRate    FaultCode = "CURRENT_RATE"
	FaultTempWarn       FaultCode = "TEMP_WARN"
	FaultTempCrit       FaultCode = "TEMP_CRIT"
	FaultH2LowWarn      FaultCode = "H2_LOW_WARN"
	FaultH2LowCrit      FaultCode = "H2_LOW_CRIT"
	FaultTelemetryStale FaultCode = "TELEMETRY_STALE"
	FaultLinkDegraded   FaultCode = "LINK_DEGRADED"
	FaultLinkDown       FaultCode = "LINK_DOWN"
	FaultPolicyTimeout  FaultCode = "POLICY_TIMEOUT"
	FaultPolicyFailure  FaultCode = "POLICY_FAILURE"
	FaultTickOverrun    FaultCode = "TICK_OVERRUN"
)

// HealthReport is the health monitor's output for one tick. It is derived
// fresh each tick and never persisted as authoritative truth on its own.
type HealthReport struct {
	Status HealthStatus
	Faults []FaultCode
}

// Has reports whether the given fault code is active.
func (r HealthReport) Has(code FaultCode) bool {
	for _, f := range r.Faults {
		if f == code {
			return true
		}
	}
	return false
}
