// Package viz renders constraint scenes in the terminal.
//
// The package implements a Bubble Tea TUI over a [sim.World]:
//
//   - [Model]: live view that steps a world and draws bodies, joints and springs
//   - [Canvas]: Braille-based pixel canvas with a world [Viewport]
//   - a scene/preset picker started by [RunInteractive]
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Rebuild the scene
//	T     - Cycle color themes
//	+/-   - Zoom
//	?     - Show help overlay
//	[]/   - Time travel (rewind/forward)
package viz
