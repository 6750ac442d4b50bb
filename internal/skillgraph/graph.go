// Package skillgraph scores how far a task sits from a learner's proven
// skills. The engine uses the distance to shift question difficulty for
// tasks that lean on weak prerequisites.
package skillgraph

// DistanceFunc returns a skill distance in [0,1] for a topic given the
// learner's current mastery. 0 means every prerequisite is solid, 1
// means the learner has none of them.
type DistanceFunc func(masteryByTopic map[string]int, topicID string) float64

// Graph is a static prerequisite map: topic -> topics it builds on.
type Graph struct {
	prereqs map[string][]string
}

// New builds a Graph from a prerequisite map. The map is used as-is; do
// not mutate it after the call.
func New(prereqs map[string][]string) *Graph {
	return &Graph{prereqs: prereqs}
}

// prerequisite mastery below this counts as unmet
const solidMastery = 60

// Distance measures unmet prerequisite mastery for topicID. Topics with
// no prerequisites are at distance 0.
func (g *Graph) Distance(masteryByTopic map[string]int, topicID string) float64 {
	reqs := g.prereqs[topicID]
	if len(reqs) == 0 {
		return 0
	}

	var gap float64
	for _, req := range reqs {
		m := masteryByTopic[req]
		if m >= solidMastery {
			continue
		}
		gap += float64(solidMastery-m) / solidMastery
	}
	d := gap / float64(len(reqs))
	if d > 1 {
		d = 1
	}
	return d
}

// DifficultyShift maps a skill distance to a difficulty adjustment.
// Distant tasks get easier questions; very close tasks get a nudge up.
func DifficultyShift(distance float64) int {
	switch {
	case distance >= 0.6:
		return -2
	case distance >= 0.4:
		return -1
	case distance < 0.2:
		return 1
	default:
		return 0
	}
}
