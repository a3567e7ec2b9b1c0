package progress

import "sync"

// Func receives pipeline progress: a stage name, the cumulative percentage
// (0-100) and a human-readable message.
type Func func(stage string, percent int, message string)

// Nop discards progress.
func Nop(string, int, string) {}

// Report calls f if it is non-nil.
func (f Func) Report(stage string, percent int, message string) {
	if f != nil {
		f(stage, percent, message)
	}
}

// Band rescales a stage-local 0-100 percentage into [lo, hi] of f.
func Band(f Func, lo, hi int) Func {
	return func(stage string, percent int, message string) {
		percent = clamp(percent)
		f.Report(stage, lo+(hi-lo)*percent/100, message)
	}
}

// Monotonic wraps f so reported percentages stay within 0-100 and never go
// backwards.
func Monotonic(f Func) Func {
	var mu sync.Mutex
	last := 0
	return func(stage string, percent int, message string) {
		mu.Lock()
		percent = clamp(percent)
		if percent < last {
			percent = last
		}
		last = percent
		mu.Unlock()
		f.Report(stage, percent, message)
	}
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
