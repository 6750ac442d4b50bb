package cognitive

import (
	"fmt"
	"time"
)

// Load is the overall cognitive-load level.
type Load string

const (
	LoadOptimal  Load = "optimal"
	LoadElevated Load = "elevated"
	LoadHigh     Load = "high"
	LoadOverload Load = "overload"
)

// Severity grades a single load indicator.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityWeight = map[Severity]float64{
	SeverityLow:      0.15,
	SeverityMedium:   0.35,
	SeverityHigh:     0.6,
	SeverityCritical: 0.9,
}

// Detection thresholds.
const (
	baselineWindow        = 5
	errorRateWindow       = 5
	errorRateThreshold    = 0.6
	consecutiveErrorAlert = 3
	sessionFatigueMinutes = 25.0
	maxSessionMinutes     = 45.0
	erraticWindow         = 8
	erraticSwitchAlert    = 6
)

// Indicator is a single load signal that crossed a threshold.
type Indicator struct {
	Type     string
	Severity Severity
	Value    float64
	Message  string
}

// Assessment is the combined cognitive-load read.
type Assessment struct {
	Load                   Load
	Score                  float64
	Indicators             []Indicator
	ShouldPause            bool
	ShouldReduceDifficulty bool
	FocusMinutesLeft       int
}

// LoadDetector tracks recent answers within one session and detects
// cognitive overload from them. Not safe for concurrent use; the engine
// serializes access per user.
type LoadDetector struct {
	sessionStart  time.Time
	responseTimes []float64
	correctness   []bool
	baseline      float64
}

// NewLoadDetector creates a detector for a session starting at start.
func NewLoadDetector(start time.Time) *LoadDetector {
	return &LoadDetector{sessionStart: start}
}

// AddResponse records one answer.
func (d *LoadDetector) AddResponse(responseTimeSec float64, correct bool) {
	d.responseTimes = append(d.responseTimes, responseTimeSec)
	if len(d.responseTimes) > 20 {
		d.responseTimes = d.responseTimes[len(d.responseTimes)-20:]
	}
	d.correctness = append(d.correctness, correct)
	if len(d.correctness) > 10 {
		d.correctness = d.correctness[len(d.correctness)-10:]
	}
	if d.baseline == 0 && len(d.responseTimes) >= baselineWindow {
		d.baseline = meanFloat(d.responseTimes[:baselineWindow])
	}
}

// Assess combines all indicators into a load level. Checks that need
// more answers than recorded stay silent.
func (d *LoadDetector) Assess(now time.Time) Assessment {
	var indicators []Indicator
	checks := []func(time.Time) *Indicator{
		d.checkResponseTime,
		d.checkErrorRate,
		d.checkConsecutiveErrors,
		d.checkSessionLength,
		d.checkErraticPattern,
	}
	for _, check := range checks {
		if ind := check(now); ind != nil {
			indicators = append(indicators, *ind)
		}
	}

	score := 0.0
	for _, ind := range indicators {
		if w := severityWeight[ind.Severity]; w > score {
			score = w
		}
	}
	// Multiple simultaneous signals compound.
	switch {
	case len(indicators) >= 3:
		score = minFloat(1, score+0.15)
	case len(indicators) >= 2:
		score = minFloat(1, score+0.1)
	}

	load := LoadOptimal
	switch {
	case score >= 0.8:
		load = LoadOverload
	case score >= 0.5:
		load = LoadHigh
	case score >= 0.25:
		load = LoadElevated
	}

	return Assessment{
		Load:                   load,
		Score:                  score,
		Indicators:             indicators,
		ShouldPause:            load == LoadHigh || load == LoadOverload,
		ShouldReduceDifficulty: load != LoadOptimal,
		FocusMinutesLeft:       d.focusMinutesLeft(load, now),
	}
}

func (d *LoadDetector) checkResponseTime(time.Time) *Indicator {
	if len(d.responseTimes) < baselineWindow || d.baseline <= 0 {
		return nil
	}
	recent := meanFloat(d.responseTimes[len(d.responseTimes)-baselineWindow:])
	ratio := recent / maxFloat(d.baseline, 1)

	var sev Severity
	switch {
	case ratio >= 3.0:
		sev = SeverityCritical
	case ratio >= 2.5:
		sev = SeverityHigh
	case ratio >= 2.0:
		sev = SeverityMedium
	case ratio >= 1.5:
		sev = SeverityLow
	default:
		return nil
	}
	return &Indicator{
		Type:     "response_time",
		Severity: sev,
		Value:    ratio,
		Message:  fmt.Sprintf("response times %.1fx slower than baseline", ratio),
	}
}

func (d *LoadDetector) checkErrorRate(time.Time) *Indicator {
	if len(d.correctness) < errorRateWindow {
		return nil
	}
	recent := d.correctness[len(d.correctness)-errorRateWindow:]
	errors := 0
	for _, c := range recent {
		if !c {
			errors++
		}
	}
	rate := float64(errors) / float64(len(recent))

	var sev Severity
	switch {
	case rate >= 0.8:
		sev = SeverityCritical
	case rate >= 0.7:
		sev = SeverityHigh
	case rate >= errorRateThreshold:
		sev = SeverityMedium
	default:
		return nil
	}
	return &Indicator{
		Type:     "error_rate",
		Severity: sev,
		Value:    rate,
		Message:  fmt.Sprintf("%d%% recent errors", int(rate*100)),
	}
}

func (d *LoadDetector) checkConsecutiveErrors(time.Time) *Indicator {
	streak := 0
	for i := len(d.correctness) - 1; i >= 0; i-- {
		if d.correctness[i] {
			break
		}
		streak++
	}
	if streak < consecutiveErrorAlert {
		return nil
	}

	var sev Severity
	switch {
	case streak >= 5:
		sev = SeverityCritical
	case streak >= 4:
		sev = SeverityHigh
	default:
		sev = SeverityMedium
	}
	return &Indicator{
		Type:     "consecutive_errors",
		Severity: sev,
		Value:    float64(streak),
		Message:  fmt.Sprintf("%d consecutive errors", streak),
	}
}

func (d *LoadDetector) checkSessionLength(now time.Time) *Indicator {
	minutes := now.Sub(d.sessionStart).Minutes()
	switch {
	case minutes >= maxSessionMinutes:
		return &Indicator{
			Type:     "session_length",
			Severity: SeverityHigh,
			Value:    minutes,
			Message:  fmt.Sprintf("%d minute session, break strongly recommended", int(minutes)),
		}
	case minutes >= sessionFatigueMinutes:
		return &Indicator{
			Type:     "session_length",
			Severity: SeverityMedium,
			Value:    minutes,
			Message:  fmt.Sprintf("%d minute session, consider a break", int(minutes)),
		}
	}
	return nil
}

// checkErraticPattern flags rapid correct/incorrect alternation, a sign of
// fluctuating concentration.
func (d *LoadDetector) checkErraticPattern(time.Time) *Indicator {
	if len(d.correctness) < erraticWindow {
		return nil
	}
	recent := d.correctness[len(d.correctness)-erraticWindow:]
	switches := 0
	for i := 1; i < len(recent); i++ {
		if recent[i] != recent[i-1] {
			switches++
		}
	}
	if switches < erraticSwitchAlert {
		return nil
	}
	return &Indicator{
		Type:     "erratic_pattern",
		Severity: SeverityMedium,
		Value:    float64(switches),
		Message:  "irregular answer pattern, concentration fluctuating",
	}
}

func (d *LoadDetector) focusMinutesLeft(load Load, now time.Time) int {
	base := maxSessionMinutes - now.Sub(d.sessionStart).Minutes()
	if base < 0 {
		base = 0
	}
	switch load {
	case LoadOverload:
		return 0
	case LoadHigh:
		return int(minFloat(5, base))
	case LoadElevated:
		return int(minFloat(15, base))
	default:
		return int(base)
	}
}

func meanFloat(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
