// Package race implements the playback core of a bar chart race.
//
// The package is host-agnostic; terminal and SVG hosts draw the [Scene]
// values it produces:
//
//   - [TopN]: per-interval ranking of records, descending and stable
//   - [Linear], [Band]: value and row scales with nice axis ticks
//   - [ColorScale]: ordinal colour assignment fixed over the whole dataset
//   - [Surface]: keyed bars joined frame to frame (enter, update, exit)
//   - [Container]: attachment point holding at most one surface
//   - [Session]: the Idle → Initializing → Playing → Stopped state machine
//
// # Timing
//
// A frame transition runs for Options.Transition. The next frame begins once
// the transition has completed and Options.Period has elapsed since the frame
// began, so a slow host never starts overlapping transitions.
//
// # Thread Safety
//
// Session and Surface are NOT thread-safe. Drive each session from a single
// goroutine; independent sessions share no state.
package race
