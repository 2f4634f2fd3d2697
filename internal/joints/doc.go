// Package joints implements impulse-based constraints anchored to the world.
//
// [FixedRevoluteJoint] keeps a body point on a fixed world anchor using an
// accumulated impulse that persists between steps (warm starting), a
// Baumgarte velocity bias and an optional softness term on the effective mass.
package joints
