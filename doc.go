// Package axle is an asynchronous Entity-Component-System runtime: a
// concurrent container of typed entities with per-component archetype
// storage, a non-blocking multi-lock query engine, and a cooperative
// phase-based scheduler for user systems.
//
// Entities are spawned from bundles of plain value components and live in
// archetypes, one table per component set, with stable row indices. Systems
// are ordinary functions whose parameters declare what they borrow:
//
//	func move(ctx context.Context, v *axle.View2[axle.Mut[Pos], axle.Ref[Vel]]) {
//		for v.Next() {
//			pos, vel := v.Get()
//			pos.Ptr().X += vel.Get().DX
//		}
//	}
//
// Adapting a system validates its joined access set once, up front: aliasing
// borrows panic before any lock is ever taken. At run time a system acquires
// every declared query atomically; if any lock is contended nothing is held
// and the attempt retries on the world's next wake, which is the only
// deadlock-avoidance discipline the runtime needs.
//
// The App builder assembles plugins, schedules and starting resources, and
// the cycle scheduler drives the PreStartup, Startup, Cycle, Shutdown and
// PostShutdown phases, looping Cycle systems until an exit is signalled
// through Commands.
package axle
