package race

import "math"

// EaseCubicInOut is the default transition easing: slow, fast, slow.
func EaseCubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}

// Tween interpolates a number between two displayed values.
type Tween struct {
	From, To float64
}

// Fixed returns a tween that holds v.
func Fixed(v float64) Tween { return Tween{From: v, To: v} }

// At returns the value at progress p in [0, 1].
func (t Tween) At(p float64) float64 {
	if p <= 0 {
		return t.From
	}
	if p >= 1 {
		return t.To
	}
	if math.IsNaN(t.From) {
		return t.To
	}
	return t.From + (t.To-t.From)*p
}

// Retarget starts a new tween from the value currently displayed at p.
func (t Tween) Retarget(p, to float64) Tween {
	return Tween{From: t.At(p), To: to}
}
