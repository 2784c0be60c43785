package achievement

import (
	"fmt"
	"strings"
	"time"
)

// Snapshot is everything an unlock predicate may read. It is captured
// once per evaluation pass so every rule sees the same state.
type Snapshot struct {
	TotalXP               int
	CurrentLevel          int
	LongestStreak         int
	TotalQuizzesCompleted int
	TotalPerfectScores    int
	GoalStreakDays        int
	Now                   time.Time
}

// Rule is one unlock predicate. Each requirement type owns a variant so
// adding a rule kind means adding a type, not another string case at
// the evaluation site.
type Rule interface {
	Met(s Snapshot) bool
	Progress(s Snapshot) Progress
}

type CountRule struct{ Required int }

func (r CountRule) Met(s Snapshot) bool { return s.TotalQuizzesCompleted >= r.Required }
func (r CountRule) Progress(s Snapshot) Progress {
	return clamp(s.TotalQuizzesCompleted, r.Required)
}

type StreakRule struct{ Required int }

func (r StreakRule) Met(s Snapshot) bool { return s.LongestStreak >= r.Required }
func (r StreakRule) Progress(s Snapshot) Progress {
	return clamp(s.LongestStreak, r.Required)
}

type PerfectScoreRule struct{ Required int }

func (r PerfectScoreRule) Met(s Snapshot) bool { return s.TotalPerfectScores >= r.Required }
func (r PerfectScoreRule) Progress(s Snapshot) Progress {
	return clamp(s.TotalPerfectScores, r.Required)
}

type LevelRule struct{ Required int }

func (r LevelRule) Met(s Snapshot) bool { return s.CurrentLevel >= r.Required }
func (r LevelRule) Progress(s Snapshot) Progress {
	return clamp(s.CurrentLevel, r.Required)
}

type TotalXPRule struct{ Required int }

func (r TotalXPRule) Met(s Snapshot) bool { return s.TotalXP >= r.Required }
func (r TotalXPRule) Progress(s Snapshot) Progress {
	return clamp(s.TotalXP, r.Required)
}

type GoalStreakRule struct{ RequiredDays int }

func (r GoalStreakRule) Met(s Snapshot) bool { return s.GoalStreakDays >= r.RequiredDays }
func (r GoalStreakRule) Progress(s Snapshot) Progress {
	return clamp(s.GoalStreakDays, r.RequiredDays)
}

// TimeOfDayRule fires on the wall-clock hour of the triggering action,
// not on accumulated state. After=true means activity at or past Hour;
// otherwise activity strictly before Hour.
type TimeOfDayRule struct {
	Hour  int
	After bool
}

func (r TimeOfDayRule) Met(s Snapshot) bool {
	if r.After {
		return s.Now.Hour() >= r.Hour
	}
	return s.Now.Hour() < r.Hour
}

func (r TimeOfDayRule) Progress(s Snapshot) Progress {
	if r.Met(s) {
		return Progress{Current: 1, Required: 1}
	}
	return Progress{Current: 0, Required: 1}
}

func clamp(current, required int) Progress {
	if current > required {
		current = required
	}
	return Progress{Current: current, Required: required}
}

// RuleFor maps a stored definition to its rule variant. This is the
// single place definitions are interpreted; everything downstream works
// with the typed rule.
func RuleFor(def Definition) (Rule, error) {
	switch def.RequirementType {
	case RequirementCount:
		return CountRule{Required: def.RequirementValue}, nil
	case RequirementStreak:
		return StreakRule{Required: def.RequirementValue}, nil
	case RequirementScore:
		return PerfectScoreRule{Required: def.RequirementValue}, nil
	case RequirementSpecial:
		return specialRuleFor(def)
	default:
		return nil, fmt.Errorf("unknown requirement type %q for achievement %s", def.RequirementType, def.Code)
	}
}

func specialRuleFor(def Definition) (Rule, error) {
	switch {
	case strings.HasPrefix(def.Code, CodeLevel):
		return LevelRule{Required: def.RequirementValue}, nil
	case strings.HasPrefix(def.Code, CodeTotalXP):
		return TotalXPRule{Required: def.RequirementValue}, nil
	case strings.HasPrefix(def.Code, CodeGoalStreak):
		return GoalStreakRule{RequiredDays: def.RequirementValue}, nil
	case def.Code == CodeNightOwl:
		return TimeOfDayRule{Hour: def.RequirementValue, After: true}, nil
	case def.Code == CodeEarlyBird:
		return TimeOfDayRule{Hour: def.RequirementValue, After: false}, nil
	default:
		return nil, fmt.Errorf("unknown special achievement code %q", def.Code)
	}
}
