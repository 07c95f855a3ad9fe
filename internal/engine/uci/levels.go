package uci

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Level is a named strength setting: engine options plus search limits.
type Level struct {
	Name    string
	Options Options
	Limits  Limits
}

var levels = map[string]Level{
	"level1": {Name: "level1", Options: Options{SkillLevel: 0, HashMB: 16}, Limits: Limits{Depth: 5, MoveTime: 20 * time.Millisecond}},
	"level2": {Name: "level2", Options: Options{SkillLevel: 0, HashMB: 16}, Limits: Limits{Depth: 6, MoveTime: 60 * time.Millisecond}},
	"level3": {Name: "level3", Options: Options{SkillLevel: 1, HashMB: 24}, Limits: Limits{Depth: 8, MoveTime: 80 * time.Millisecond}},
	"level4": {Name: "level4", Options: Options{SkillLevel: 3, HashMB: 32}, Limits: Limits{Depth: 10, MoveTime: 140 * time.Millisecond}},
	"level5": {Name: "level5", Options: Options{SkillLevel: 7, HashMB: 48}, Limits: Limits{Depth: 12, MoveTime: 200 * time.Millisecond}},
	"level6": {Name: "level6", Options: Options{SkillLevel: 11, HashMB: 64}, Limits: Limits{Depth: 16, MoveTime: 300 * time.Millisecond}},
	"level7": {Name: "level7", Options: Options{SkillLevel: 16, HashMB: 96}, Limits: Limits{Depth: 20, MoveTime: 500 * time.Millisecond}},
	"level8": {Name: "level8", Options: Options{SkillLevel: 20, HashMB: 128, Threads: 2}, Limits: Limits{Depth: 30, MoveTime: time.Second}},
}

// LookupLevel accepts "level3" or just "3".
func LookupLevel(name string) (Level, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(key, "level") {
		key = "level" + key
	}
	l, ok := levels[key]
	if !ok {
		return Level{}, fmt.Errorf("unknown engine level %q (have %s)", name, strings.Join(LevelNames(), ", "))
	}
	return l, nil
}

func LevelNames() []string {
	names := make([]string, 0, len(levels))
	for n := range levels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
