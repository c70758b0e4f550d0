// Package viz provides the interactive terminal player for a bar chart race.
//
// The package implements a TUI using the Bubble Tea framework:
//
//   - [Model]: drives a race session from tick messages and draws each scene
//   - [Theme]: bar palette plus chrome colours, 4 built-in schemes
//
// # Key Bindings
//
//	Space - Pause/Resume playback
//	R     - Restart from the first interval
//	T     - Cycle color themes
//	B     - Toggle ISO country code badges
//	G     - Toggle GIF recording
//	?     - Show help overlay
//
// # Recording
//
// The G key records the race as a GIF animation. Bars are drawn without
// text; the file is written when recording stops or the player quits.
package viz
