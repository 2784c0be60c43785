package progression

// XP awards for a single scored quiz. The score tiers are mutually
// exclusive: a perfect score pays the perfect bonus only, not the 90%
// tier underneath it.
const (
	CompletionXP      = 10
	Tier70Bonus       = 5
	Tier90Bonus       = 15
	PerfectBonus      = 25
	StreakBonusPerDay = 2
	StreakBonusCap    = 20
	FirstOfDayBonus   = 5
	DailyGoalBonus    = 20
)

// Breakdown itemizes one quiz award. Total is always the sum of the
// other fields.
type Breakdown struct {
	Completion   int `json:"completion"`
	ScoreBonus   int `json:"score_bonus,omitempty"`
	PerfectBonus int `json:"perfect_bonus,omitempty"`
	StreakBonus  int `json:"streak_bonus,omitempty"`
	FirstOfDay   int `json:"first_of_day,omitempty"`
	DailyGoal    int `json:"daily_goal,omitempty"`
	Total        int `json:"total"`
}

// CalculateQuizXP computes the award for a scored quiz. It is a pure
// function: the one-shot flags (isFirstToday, dailyGoalJustMet) are
// edge-detected by the caller from state read before the update.
func CalculateQuizXP(score, total, currentStreak int, isFirstToday, dailyGoalJustMet bool) Breakdown {
	b := Breakdown{Completion: CompletionXP}

	if total > 0 {
		percent := score * 100 / total
		switch {
		case score == total:
			b.PerfectBonus = PerfectBonus
		case percent >= 90:
			b.ScoreBonus = Tier90Bonus
		case percent >= 70:
			b.ScoreBonus = Tier70Bonus
		}
	}

	if currentStreak > 0 {
		bonus := currentStreak * StreakBonusPerDay
		if bonus > StreakBonusCap {
			bonus = StreakBonusCap
		}
		b.StreakBonus = bonus
	}

	if isFirstToday {
		b.FirstOfDay = FirstOfDayBonus
	}

	if dailyGoalJustMet {
		b.DailyGoal = DailyGoalBonus
	}

	b.Total = b.Completion + b.ScoreBonus + b.PerfectBonus + b.StreakBonus + b.FirstOfDay + b.DailyGoal
	return b
}
