// Package viz renders FTLE runs in the terminal.
//
//   - [ProgressModel]: Bubble Tea view of a running computation, one bar per direction
//   - [Canvas]: Braille pixel canvas, 2×4 dots per cell
//   - [MapView]: orthographic projection of particles and trajectories onto a Canvas
//   - [PlotHistogram]: asciigraph rendering of a field histogram
//   - Theme selection with built-in color schemes
//
// # Key Bindings
//
//	q, Ctrl+C - Cancel the computation
package viz
