package achievement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapAt(hour int) Snapshot {
	return Snapshot{Now: time.Date(2025, 3, 10, hour, 30, 0, 0, time.UTC)}
}

func TestCountRule(t *testing.T) {
	r := CountRule{Required: 10}

	assert.False(t, r.Met(Snapshot{TotalQuizzesCompleted: 9}))
	assert.True(t, r.Met(Snapshot{TotalQuizzesCompleted: 10}))
	assert.True(t, r.Met(Snapshot{TotalQuizzesCompleted: 11}))

	p := r.Progress(Snapshot{TotalQuizzesCompleted: 7})
	assert.Equal(t, Progress{Current: 7, Required: 10}, p)

	p = r.Progress(Snapshot{TotalQuizzesCompleted: 14})
	assert.Equal(t, Progress{Current: 10, Required: 10}, p, "progress clamps at required")
}

func TestStreakRuleUsesLongestStreak(t *testing.T) {
	r := StreakRule{Required: 7}

	// A broken current streak must not revoke a milestone already earned.
	assert.True(t, r.Met(Snapshot{LongestStreak: 7}))
	assert.False(t, r.Met(Snapshot{LongestStreak: 6}))
}

func TestPerfectScoreRule(t *testing.T) {
	r := PerfectScoreRule{Required: 25}

	assert.False(t, r.Met(Snapshot{TotalPerfectScores: 24}))
	assert.True(t, r.Met(Snapshot{TotalPerfectScores: 25}))
}

func TestLevelAndTotalXPRules(t *testing.T) {
	assert.True(t, LevelRule{Required: 5}.Met(Snapshot{CurrentLevel: 5}))
	assert.False(t, LevelRule{Required: 5}.Met(Snapshot{CurrentLevel: 4}))

	assert.True(t, TotalXPRule{Required: 5000}.Met(Snapshot{TotalXP: 5000}))
	assert.False(t, TotalXPRule{Required: 5000}.Met(Snapshot{TotalXP: 4999}))
}

func TestGoalStreakRule(t *testing.T) {
	r := GoalStreakRule{RequiredDays: 7}

	assert.True(t, r.Met(Snapshot{GoalStreakDays: 7}))
	assert.False(t, r.Met(Snapshot{GoalStreakDays: 6}))
	assert.Equal(t, Progress{Current: 3, Required: 7}, r.Progress(Snapshot{GoalStreakDays: 3}))
}

func TestTimeOfDayRule(t *testing.T) {
	nightOwl := TimeOfDayRule{Hour: 22, After: true}
	assert.True(t, nightOwl.Met(snapAt(22)))
	assert.True(t, nightOwl.Met(snapAt(23)))
	assert.False(t, nightOwl.Met(snapAt(21)))

	earlyBird := TimeOfDayRule{Hour: 7, After: false}
	assert.True(t, earlyBird.Met(snapAt(6)))
	assert.False(t, earlyBird.Met(snapAt(7)))

	assert.Equal(t, Progress{Current: 1, Required: 1}, nightOwl.Progress(snapAt(23)))
	assert.Equal(t, Progress{Current: 0, Required: 1}, nightOwl.Progress(snapAt(10)))
}

func TestRuleFor(t *testing.T) {
	cases := []struct {
		name string
		def  Definition
		want Rule
	}{
		{"count", Definition{RequirementType: RequirementCount, RequirementValue: 50}, CountRule{Required: 50}},
		{"streak", Definition{RequirementType: RequirementStreak, RequirementValue: 30}, StreakRule{Required: 30}},
		{"score", Definition{RequirementType: RequirementScore, RequirementValue: 10}, PerfectScoreRule{Required: 10}},
		{"level", Definition{RequirementType: RequirementSpecial, Code: "level_10", RequirementValue: 10}, LevelRule{Required: 10}},
		{"total xp", Definition{RequirementType: RequirementSpecial, Code: "total_xp_5000", RequirementValue: 5000}, TotalXPRule{Required: 5000}},
		{"goal streak", Definition{RequirementType: RequirementSpecial, Code: "goal_streak_7", RequirementValue: 7}, GoalStreakRule{RequiredDays: 7}},
		{"night owl", Definition{RequirementType: RequirementSpecial, Code: "night_owl", RequirementValue: 22}, TimeOfDayRule{Hour: 22, After: true}},
		{"early bird", Definition{RequirementType: RequirementSpecial, Code: "early_bird", RequirementValue: 7}, TimeOfDayRule{Hour: 7, After: false}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := RuleFor(tc.def)
			require.NoError(t, err)
			assert.Equal(t, tc.want, r)
		})
	}
}

func TestRuleFor_UnknownDefinitions(t *testing.T) {
	_, err := RuleFor(Definition{RequirementType: "distance", Code: "marathon"})
	assert.Error(t, err)

	_, err = RuleFor(Definition{RequirementType: RequirementSpecial, Code: "mystery"})
	assert.Error(t, err)
}
