// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [Transport]: Non-blocking byte exchange with the motor controller
//   - [BaselinePolicy]: Deterministic control law (state to control vector)
//   - [AdjustmentPolicy]: Learned correction layered atop the baseline
//   - [Logger]: Structured logging abstraction
//
// # Usage
//
// The application layer (internal/app and the component packages) depends
// only on these interfaces. Infrastructure adapters (internal/adapters,
// internal/policy) implement them with concrete backends (serial port, UDP
// socket, simulator, zerolog, model files).
//
// This separation enables:
//   - Testing application logic with mock implementations
//   - Swapping infrastructure without changing business logic
//   - Clear boundaries and dependency direction
package ports
