// Package dynamo defines the contract shared by every constraint the solver
// drives each step.
//
// Two capability interfaces cover the constraint families:
//
//   - [Joint]: impulse-based constraints solved iteratively. The world calls
//     Validate, then PreStep once, then Update once per solver iteration.
//   - [Controller]: continuous-force constraints such as springs. The world
//     calls Validate, then Update(dt) once per step before integrating
//     velocities.
//
// Both embed [Constraint], which exposes the lifecycle: enabled, disposed,
// the breakpoint and the last computed scalar error.
//
// # Lifecycle
//
// A constraint starts Active. Exceeding its breakpoint disables it and fires
// the [BreakFunc] registered at construction, once per disable transition.
// Disposal (explicit, or because its body was disposed) is terminal.
// Neither transition is reported as an error.
//
// # Math
//
// Vectors and matrices are [mgl64.Vec2] and [mgl64.Mat2]. [Cross] is the 2D
// scalar cross product, [Invert2] the closed-form 2x2 inverse which reports
// [ErrSingularMatrix] instead of dividing by a zero determinant.
//
// # Thread Safety
//
// Nothing in this package or its implementations is safe for concurrent use.
// A step runs sequentially and its result depends on iteration order.
package dynamo
