// Package hevsup provides an embeddable supervisory controller for a
// hydrogen-hybrid powertrain.
//
// Hevsup sits beside a low-level motor controller (MCU), consumes its framed
// telemetry over a lossy serial or datagram link, and runs a fixed-period
// decision cycle: a deterministic charge-sustaining baseline plus an optional
// learned adjustment, arbitrated by a health monitor and clamped to a safety
// envelope. It can be used as a standalone CLI application or embedded as a
// library in other Go programs.
//
// # Basic Usage
//
// To embed hevsup in your application:
//
//	cfg := hevsup.Config{
//	    Transport:   hevsup.TransportSerial,
//	    SerialPort:  "/dev/ttyUSB0",
//	    RecorderDir: "/var/lib/hevsup/data",
//	}
//
//	sup, err := hevsup.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := sup.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := sup.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Configuration
//
// Create a [Config] and set at minimum the transport. All other fields have
// sensible defaults set via [Config.SetDefaults]. The default transport is
// the built-in simulated MCU, so a zero Config (plus a recorder directory)
// yields a runnable closed loop.
//
// # Event Handling
//
// To receive notifications about supervisor operation, implement
// [EventHandler] and pass it via [WithEventHandler]:
//
//	handler := &myEventHandler{}
//	sup, err := hevsup.New(cfg, hevsup.WithEventHandler(handler))
//
// Events are called synchronously from the control loop goroutine.
// Implementations should return quickly to avoid eating the tick period.
//
// # Dependency Injection
//
// For testing, or to replace a built-in component, inject implementations of
// the extension points:
//
//	sup, err := hevsup.New(cfg,
//	    hevsup.WithTransport(loopback),
//	    hevsup.WithBaselinePolicy(myBaseline),
//	    hevsup.WithLogger(customLogger),
//	)
//
// # Lifecycle States
//
// A Supervisor instance can be in one of five states: [StateStopped],
// [StateStarting], [StateRunning], [StateStopping], or [StateCrashed]. Use
// [Supervisor.Status] to query the current state.
//
// # Adjustment Models
//
// The learned adjustment is loaded from a JSON model file named by
// [Config.ModelPath] and hot-reloaded whenever the file changes. Without a
// model the supervisor runs on the baseline alone.
package hevsup
