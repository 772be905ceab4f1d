// Package viz renders molecular dynamics runs in the terminal.
//
// The live view is a Bubble Tea program fed by a simulation running in its
// own goroutine:
//
//   - [Model]: live view with a projected cell, energy plot and run status
//   - [Canvas]: Braille-based pixel canvas
//   - [Camera]: orthographic projection of the cell and its atoms
//   - [Picker]: menu over the configuration presets
//
// # Key Bindings
//
//	Space - Pause/Resume the run
//	X/Y   - Rotate the view
//	+/-   - Zoom
//	R     - Reset the view
//	T     - Cycle color themes
//	?     - Show help overlay
//	Q     - Stop the run and quit
package viz
