package chess

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/Cheese-chess-client/internal/chess/uci"
)

// Level is a named engine strength: the UCI options a worker is configured
// with plus the default search budget.
type Level struct {
	Name           string
	SkillLevel     int
	Threads        int
	HashMB         int
	MoveTimeMillis int
	DepthCap       int
}

const (
	MinSkill = 0
	MaxSkill = 20

	defaultThreads = 1
)

var DefaultLevels = []Level{
	{Name: "level1", SkillLevel: 0, Threads: defaultThreads, HashMB: 16, MoveTimeMillis: 50, DepthCap: 5},
	{Name: "level2", SkillLevel: 2, Threads: defaultThreads, HashMB: 16, MoveTimeMillis: 100, DepthCap: 6},
	{Name: "level3", SkillLevel: 5, Threads: defaultThreads, HashMB: 24, MoveTimeMillis: 150, DepthCap: 8},
	{Name: "level4", SkillLevel: 8, Threads: defaultThreads, HashMB: 32, MoveTimeMillis: 250, DepthCap: 10},
	{Name: "level5", SkillLevel: 11, Threads: 2, HashMB: 48, MoveTimeMillis: 400, DepthCap: 12},
	{Name: "level6", SkillLevel: 14, Threads: 2, HashMB: 64, MoveTimeMillis: 600, DepthCap: 16},
	{Name: "level7", SkillLevel: 17, Threads: 2, HashMB: 96, MoveTimeMillis: 800, DepthCap: 20},
	{Name: "level8", SkillLevel: 20, Threads: 4, HashMB: 128, MoveTimeMillis: 1000, DepthCap: 30},
}

// GetLevel resolves a level by name ("level3"), alias ("beginner") or bare
// skill number ("12").
func GetLevel(name string) (Level, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "beginner":
		key = "level1"
	case "intermediate":
		key = "level5"
	case "advanced":
		key = "level7"
	case "master":
		key = "level8"
	}
	for _, l := range DefaultLevels {
		if l.Name == key {
			return l, nil
		}
	}
	if n, err := strconv.Atoi(key); err == nil {
		if n < MinSkill || n > MaxSkill {
			return Level{}, fmt.Errorf("skill level %d out of range %d-%d", n, MinSkill, MaxSkill)
		}
		return ForSkill(n), nil
	}
	return Level{}, fmt.Errorf("unknown chess level: %s", name)
}

// ForSkill returns the strongest default level not above skill, with its
// SkillLevel set to skill exactly. Out-of-range values are clamped.
func ForSkill(skill int) Level {
	if skill < MinSkill {
		skill = MinSkill
	}
	if skill > MaxSkill {
		skill = MaxSkill
	}
	base := DefaultLevels[0]
	for _, l := range DefaultLevels {
		if l.SkillLevel <= skill {
			base = l
		}
	}
	base.SkillLevel = skill
	base.Name = "skill" + strconv.Itoa(skill)
	return base
}

func ValidateLevel(l Level) error {
	switch {
	case l.SkillLevel < MinSkill || l.SkillLevel > MaxSkill:
		return fmt.Errorf("skill level %d out of range %d-%d", l.SkillLevel, MinSkill, MaxSkill)
	case l.Threads <= 0:
		return fmt.Errorf("threads must be > 0: %d", l.Threads)
	case l.HashMB <= 0:
		return fmt.Errorf("hash size must be > 0: %d", l.HashMB)
	case l.MoveTimeMillis < 0:
		return fmt.Errorf("move time must be >= 0: %d", l.MoveTimeMillis)
	case l.DepthCap < 0:
		return fmt.Errorf("depth cap must be >= 0: %d", l.DepthCap)
	}
	return nil
}

// Options is the worker configuration for this level.
func (l Level) Options() uci.Options {
	return uci.Options{
		SkillLevel: l.SkillLevel,
		Threads:    l.Threads,
		HashMB:     l.HashMB,
	}
}
