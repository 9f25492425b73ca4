package chess

import (
	"strings"
	"testing"

	"github.com/park285/Cheese-chess-client/internal/chess/uci"
)

func TestGetLevelAliases(t *testing.T) {
	cases := map[string]int{
		"beginner": 0,
		"level5":   11,
		"MASTER":   20,
		"12":       12,
	}
	for name, skill := range cases {
		l, err := GetLevel(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if l.SkillLevel != skill {
			t.Fatalf("%s: want skill %d got %d", name, skill, l.SkillLevel)
		}
		if err := ValidateLevel(l); err != nil {
			t.Fatalf("%s: invalid level %v", name, err)
		}
	}
	for _, bad := range []string{"level9", "21", "-1", ""} {
		if _, err := GetLevel(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestForSkillClamps(t *testing.T) {
	if l := ForSkill(99); l.SkillLevel != MaxSkill {
		t.Fatalf("expected clamp to %d, got %d", MaxSkill, l.SkillLevel)
	}
	if l := ForSkill(-3); l.SkillLevel != MinSkill {
		t.Fatalf("expected clamp to %d, got %d", MinSkill, l.SkillLevel)
	}
	if l := ForSkill(12); l.HashMB != 48 {
		t.Fatalf("skill 12 should borrow level5 resources, got %+v", l)
	}
}

func TestLimitsGoLine(t *testing.T) {
	l, _ := GetLevel("level3")
	goLine := func(budget int) (string, error) {
		args, err := uci.GoTokens(l.Limits(budget))
		return strings.Join(args, " "), err
	}
	got, err := goLine(750)
	if err != nil || got != "go movetime 750" {
		t.Fatalf("budget: got %q, %v", got, err)
	}
	got, err = goLine(0)
	if err != nil || got != "go movetime 150" {
		t.Fatalf("level default: got %q, %v", got, err)
	}
	l.MoveTimeMillis = 0
	got, err = goLine(0)
	if err != nil || got != "go depth 8" {
		t.Fatalf("depth fallback: got %q, %v", got, err)
	}
	l.DepthCap = 0
	if _, err := goLine(0); err == nil {
		t.Fatalf("expected error without limits")
	}
}
