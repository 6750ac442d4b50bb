package cognitive

import "time"

// Fatigue is the detected fatigue level.
type Fatigue string

const (
	FatigueNone     Fatigue = "none"
	FatigueEarly    Fatigue = "early"
	FatigueModerate Fatigue = "moderate"
	FatigueSevere   Fatigue = "severe"
)

// Flow describes where the learner sits relative to the flow zone.
type Flow string

const (
	FlowBelow Flow = "below"   // too easy
	FlowIn    Flow = "in_flow" // challenge matches ability
	FlowAbove Flow = "above"   // too hard
)

// State is the unified read of the learner: cognitive load, fatigue and
// flow merged into one assessment.
type State struct {
	Load        Load
	Fatigue     Fatigue
	Flow        Flow
	ShouldPause bool
	Recovery    bool
	Warning     string
}

// NeutralState is what Assess returns when there is not enough history to
// say anything.
func NeutralState() State {
	return State{Load: LoadOptimal, Fatigue: FatigueNone, Flow: FlowBelow}
}

const (
	minHistoryForAssessment = 5
	fatigueTrendWindow      = 10
	fatigueTrendRatio       = 1.3
	flowWindow              = 20
	minFlowHistory          = 10
)

// Assess merges the load detector with fatigue and flow detection over the
// recent answer history. Pure apart from reading the detector; no state is
// mutated.
func Assess(history []Response, detector *LoadDetector, now time.Time) State {
	state := NeutralState()
	if len(history) < minHistoryForAssessment {
		return state
	}

	if detector != nil {
		assessment := detector.Assess(now)
		state.Load = assessment.Load
		state.ShouldPause = assessment.ShouldPause
	}

	state.Fatigue, state.Warning = detectFatigue(history, detector, now)
	if state.Fatigue == FatigueModerate {
		state.ShouldPause = true
	}

	state.Flow = detectFlow(history)

	if state.Load == LoadHigh || state.Load == LoadOverload || state.Fatigue == FatigueModerate {
		state.Recovery = true
	}
	return state
}

// detectFatigue applies the fatigue checks in priority order; the first
// match wins.
func detectFatigue(history []Response, detector *LoadDetector, now time.Time) (Fatigue, string) {
	// Long session dominates every other signal.
	if detector != nil {
		if minutes := now.Sub(detector.sessionStart).Minutes(); minutes > maxSessionMinutes {
			return FatigueModerate, "45+ minute session, break recommended"
		}
	}

	// Rising response times across the last ten answers.
	if len(history) >= fatigueTrendWindow {
		recent := Tail(history, fatigueTrendWindow)
		firstHalf := meanResponseTime(recent[:fatigueTrendWindow/2])
		lastHalf := meanResponseTime(recent[fatigueTrendWindow/2:])
		if firstHalf > 0 && lastHalf > firstHalf*fatigueTrendRatio {
			return FatigueEarly, "response times rising, fatigue detected"
		}
	}

	// A sudden error after a clean run models an attentional micro-lapse.
	recent := Tail(history, 5)
	if len(recent) == 5 && !recent[4].Correct {
		clean := true
		for _, r := range recent[:4] {
			if !r.Correct {
				clean = false
				break
			}
		}
		if clean {
			return FatigueEarly, "unexpected error after a clean run"
		}
	}

	return FatigueNone, ""
}

// detectFlow classifies the challenge/ability balance over the last twenty
// answers. Needs at least ten; defaults to below (too easy) otherwise.
func detectFlow(history []Response) Flow {
	recent := Tail(history, flowWindow)
	if len(recent) < minFlowHistory {
		return FlowBelow
	}
	accuracy := Accuracy(recent)
	difficulty := meanDifficulty(recent)

	switch {
	case accuracy >= 0.60 && accuracy <= 0.80 && difficulty >= 2.5 && difficulty <= 4.5:
		return FlowIn
	case accuracy > 0.80:
		return FlowBelow
	default:
		return FlowAbove
	}
}
