package uci

import "testing"

func TestLookupLevel(t *testing.T) {
	l, err := LookupLevel("3")
	if err != nil {
		t.Fatalf("LookupLevel: %v", err)
	}
	if l.Name != "level3" || l.Options.SkillLevel != 1 {
		t.Fatalf("unexpected level: %+v", l)
	}
	if _, err := LookupLevel("Level8"); err != nil {
		t.Fatalf("case-insensitive lookup failed: %v", err)
	}
	if _, err := LookupLevel("level9"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestLevelsAreUsable(t *testing.T) {
	prevSkill := -1
	for _, name := range LevelNames() {
		l, _ := LookupLevel(name)
		if err := l.Options.validate(); err != nil {
			t.Fatalf("%s options invalid: %v", name, err)
		}
		if _, err := l.Limits.goCommand(); err != nil {
			t.Fatalf("%s limits invalid: %v", name, err)
		}
		if l.Options.SkillLevel < prevSkill {
			t.Fatalf("%s is weaker than the level before it", name)
		}
		prevSkill = l.Options.SkillLevel
	}
}
