package cognitive

import "time"

// Response is one answered question, the unit of signal for every
// detector in the engine.
type Response struct {
	TopicID         string    `json:"topic_id"`
	Correct         bool      `json:"correct"`
	ResponseTimeSec float64   `json:"response_time_sec"`
	Difficulty      int       `json:"difficulty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Accuracy returns the fraction of correct answers in the slice.
// Returns 0 for an empty slice.
func Accuracy(responses []Response) float64 {
	if len(responses) == 0 {
		return 0
	}
	correct := 0
	for _, r := range responses {
		if r.Correct {
			correct++
		}
	}
	return float64(correct) / float64(len(responses))
}

// Tail returns the last n responses (or all of them if fewer).
func Tail(responses []Response, n int) []Response {
	if len(responses) <= n {
		return responses
	}
	return responses[len(responses)-n:]
}

// ConsecutiveErrors counts the run of incorrect answers at the end of the
// slice.
func ConsecutiveErrors(responses []Response) int {
	n := 0
	for i := len(responses) - 1; i >= 0; i-- {
		if responses[i].Correct {
			break
		}
		n++
	}
	return n
}

func meanResponseTime(responses []Response) float64 {
	if len(responses) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range responses {
		sum += r.ResponseTimeSec
	}
	return sum / float64(len(responses))
}

func meanDifficulty(responses []Response) float64 {
	if len(responses) == 0 {
		return 0
	}
	sum := 0
	for _, r := range responses {
		sum += r.Difficulty
	}
	return float64(sum) / float64(len(responses))
}
