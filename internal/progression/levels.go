package progression

// LevelThreshold maps a level to the cumulative XP required to reach it.
type LevelThreshold struct {
	Level      int `json:"level" db:"level"`
	XPRequired int `json:"xp_required" db:"xp_required"`
}

// DefaultLevelThresholds is the compiled-in threshold table, strictly
// increasing in XPRequired. The database seeds the same values; the
// in-memory copy serves lookups since the table is near-static.
var DefaultLevelThresholds = []LevelThreshold{
	{Level: 1, XPRequired: 0},
	{Level: 2, XPRequired: 100},
	{Level: 3, XPRequired: 250},
	{Level: 4, XPRequired: 450},
	{Level: 5, XPRequired: 700},
	{Level: 6, XPRequired: 1000},
	{Level: 7, XPRequired: 1400},
	{Level: 8, XPRequired: 1900},
	{Level: 9, XPRequired: 2500},
	{Level: 10, XPRequired: 3200},
	{Level: 11, XPRequired: 4000},
	{Level: 12, XPRequired: 5000},
	{Level: 13, XPRequired: 6200},
	{Level: 14, XPRequired: 7600},
	{Level: 15, XPRequired: 9200},
	{Level: 16, XPRequired: 11000},
	{Level: 17, XPRequired: 13000},
	{Level: 18, XPRequired: 15500},
	{Level: 19, XPRequired: 18500},
	{Level: 20, XPRequired: 22000},
}

// LevelTable answers level lookups against a threshold list.
type LevelTable struct {
	thresholds []LevelThreshold
}

func NewLevelTable(thresholds []LevelThreshold) *LevelTable {
	if len(thresholds) == 0 {
		thresholds = DefaultLevelThresholds
	}
	return &LevelTable{thresholds: thresholds}
}

// LevelFor returns the highest level whose threshold is <= totalXP.
func (t *LevelTable) LevelFor(totalXP int) int {
	level := t.thresholds[0].Level
	for _, th := range t.thresholds {
		if th.XPRequired > totalXP {
			break
		}
		level = th.Level
	}
	return level
}

// Progress returns how far totalXP sits inside its current level:
// xpIntoLevel out of xpForNext. At the top level xpForNext is 0.
func (t *LevelTable) Progress(totalXP int) (xpIntoLevel, xpForNext int) {
	level := t.LevelFor(totalXP)
	var floor, ceiling int
	haveCeiling := false
	for _, th := range t.thresholds {
		if th.Level == level {
			floor = th.XPRequired
		}
		if th.Level == level+1 {
			ceiling = th.XPRequired
			haveCeiling = true
		}
	}
	if !haveCeiling {
		return totalXP - floor, 0
	}
	return totalXP - floor, ceiling - floor
}

// MaxLevel returns the last level in the table.
func (t *LevelTable) MaxLevel() int {
	return t.thresholds[len(t.thresholds)-1].Level
}
