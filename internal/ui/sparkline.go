package ui

import "strings"

// SparklineChars are the eight bar heights, lowest first.
var SparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline is a fixed-size ring of samples rendered as block characters,
// scaled to the largest sample currently held.
type Sparkline struct {
	samples []float64
	head    int
	count   int
}

// NewSparkline creates a sparkline holding width samples.
func NewSparkline(width int) *Sparkline {
	if width <= 0 {
		width = 60
	}
	return &Sparkline{samples: make([]float64, width)}
}

// Add appends a sample, overwriting the oldest once full.
func (s *Sparkline) Add(value float64) {
	if value < 0 {
		value = 0
	}
	s.samples[s.head] = value
	s.head = (s.head + 1) % len(s.samples)
	if s.count < len(s.samples) {
		s.count++
	}
}

// Count returns the number of samples held.
func (s *Sparkline) Count() int {
	return s.count
}

// ordered returns held samples oldest first.
func (s *Sparkline) ordered() []float64 {
	out := make([]float64, 0, s.count)
	start := (s.head - s.count + len(s.samples)) % len(s.samples)
	for i := 0; i < s.count; i++ {
		out = append(out, s.samples[(start+i)%len(s.samples)])
	}
	return out
}

// Render draws the newest width samples, right-aligned and padded with
// spaces. A width <= 0 draws every held sample.
func (s *Sparkline) Render(width int) string {
	samples := s.ordered()
	if width <= 0 {
		width = len(s.samples)
	}
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}

	peak := 0.0
	for _, v := range samples {
		peak = max(peak, v)
	}

	var sb strings.Builder
	sb.Grow(width * 3)
	sb.WriteString(strings.Repeat(" ", width-len(samples)))
	for _, v := range samples {
		idx := 0
		if peak > 0 {
			idx = int(v / peak * float64(len(SparklineChars)-1))
		}
		sb.WriteRune(SparklineChars[idx])
	}
	return sb.String()
}
