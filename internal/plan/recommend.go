package plan

import (
	"log/slog"

	"github.com/myrjola/runplan/internal/errors"
)

// Goals lists the goals RecommendPlan supports in the order onboarding presents them.
func Goals() []Goal {
	return []Goal{GoalRunConsistently, GoalImprove5K, GoalImprove10K, GoalHalfMarathon}
}

// Label returns a human-readable name for the goal.
func (g Goal) Label() string {
	switch g {
	case GoalRunConsistently:
		return "Run consistently"
	case GoalImprove5K:
		return "Improve my 5K"
	case GoalImprove10K:
		return "Improve my 10K"
	case GoalHalfMarathon:
		return "Run a half marathon"
	}
	return string(g)
}

// RecommendPlan maps a goal to its archetype. Goals without a mapping fail with [ErrUnsupportedGoal] instead of
// falling back to a default.
func RecommendPlan(goal Goal) (Archetype, error) {
	switch goal {
	case GoalRunConsistently:
		return ArchetypeBaseBuilder, nil
	case GoalImprove5K:
		return ArchetypeFiveKTimeTrial, nil
	case GoalImprove10K:
		return ArchetypeTenKImprover, nil
	case GoalHalfMarathon:
		// No dedicated half marathon archetype exists yet.
		return ArchetypeTenKImprover, nil
	}
	return "", errors.Wrap(ErrUnsupportedGoal, "recommend plan", slog.String("goal", string(goal)))
}
