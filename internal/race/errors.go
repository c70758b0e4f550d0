package race

import "errors"

var (
	// ErrNoData indicates a dataset without records or intervals.
	ErrNoData = errors.New("race: dataset has no records or intervals")

	// ErrStarted indicates Start was called on a session that already left Idle.
	ErrStarted = errors.New("race: session already started")

	// ErrDetached indicates a surface replaced by a later mount.
	ErrDetached = errors.New("race: surface detached from container")
)
