// Package domain contains the core domain entities and value objects for hevsup.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (transport, file system, logging)
// and contains only pure business logic.
//
// # Entities
//
//   - [TelemetryFrame]: A validated telemetry message from the motor controller
//   - [CommandFrame]: An arbitrated command destined for the motor controller
//   - [VehicleState]: The authoritative powertrain snapshot with derived signals
//   - [ControlVector]: A bounded actuator command vector
//   - [HealthReport]: Per-tick health classification with active fault codes
//   - [LinkStatus]: Link session health and acknowledgment tracking
//   - [DecisionRecord]: One tick's state/decision/health tuple for the recorder
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
