package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/san-kum/barrace/internal/race"
)

const DefaultFPS = 30

// Drive plays s to completion on a simulated clock, calling fn with the
// first scene and then once per step of 1/fps. It returns the number of
// scenes delivered.
func Drive(s *race.Session, fps int, fn func(race.Scene) error) (int, error) {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if s.State() == race.StateIdle {
		if err := s.Start(); err != nil {
			return 0, err
		}
	}
	if s.Paused() {
		s.TogglePause()
	}

	step := time.Second / time.Duration(fps)
	n := 0
	if err := fn(s.Scene()); err != nil {
		return n, err
	}
	n++
	for s.State() == race.StatePlaying {
		s.Advance(step)
		if err := fn(s.Scene()); err != nil {
			return n, err
		}
		n++
	}
	return n, s.Err()
}

// WriteFrames writes frame_NNNN.svg files into dir, one per simulated
// step. Frames left in dir by an earlier export are removed first.
func WriteFrames(dir string, s *race.Session, fps int, f *race.Formatter) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create %s: %w", dir, err)
	}
	removed, err := ClearFrames(dir)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		slog.Info("removed previous frames", "dir", dir, "count", removed)
	}

	i := 0
	return Drive(s, fps, func(sc race.Scene) error {
		path := filepath.Join(dir, fmt.Sprintf("frame_%04d.svg", i))
		i++
		if err := os.WriteFile(path, []byte(SceneToSVG(sc, f)), 0644); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
		return nil
	})
}

// ClearFrames removes frame_*.svg files from dir and reports how many went.
func ClearFrames(dir string) (int, error) {
	old, err := filepath.Glob(filepath.Join(dir, "frame_*.svg"))
	if err != nil {
		return 0, err
	}
	for _, p := range old {
		if err := os.Remove(p); err != nil {
			return 0, fmt.Errorf("remove old frame: %w", err)
		}
	}
	return len(old), nil
}
