// Package data ships the built-in matchmaking data used when no external
// selection flow hands one over: today's mortal, the candidate matches and
// the per-match compatibility readings.
package data

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed today
var todayFS embed.FS

// Match is one candidate with its id derived from the data file name.
type Match struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

// Today bundles everything the selection flow and the game need for one
// day's assignment.
type Today struct {
	Mortal        map[string]any            `json:"mortal"`
	Matches       []Match                   `json:"matches"`
	Compatibility map[string]map[string]any `json:"compatibility"`
}

var (
	loadOnce sync.Once
	loaded   *Today
	loadErr  error
)

// Load parses the embedded data set. The result is cached; the embedded
// files never change at runtime.
func Load() (*Today, error) {
	loadOnce.Do(func() {
		loaded, loadErr = parse()
	})
	return loaded, loadErr
}

func parse() (*Today, error) {
	mortal, err := loadSingle("today/mortal")
	if err != nil {
		return nil, err
	}
	name, _ := mortal["name"].(string)
	mortalID := normalizeID(name)

	matches, err := loadMatches("today/matches")
	if err != nil {
		return nil, err
	}

	compatibility, err := loadCompatibility("today/compatibility", mortalID)
	if err != nil {
		return nil, err
	}

	return &Today{Mortal: mortal, Matches: matches, Compatibility: compatibility}, nil
}

func loadSingle(dir string) (map[string]any, error) {
	entries, err := fs.ReadDir(todayFS, dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		return loadYAML(path.Join(dir, entry.Name()))
	}
	return nil, fmt.Errorf("no data files under %s", dir)
}

func loadMatches(dir string) ([]Match, error) {
	entries, err := fs.ReadDir(todayFS, dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".yaml") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	matches := make([]Match, 0, len(names))
	for _, name := range names {
		payload, err := loadYAML(path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{
			ID:   strings.TrimSuffix(name, ".yaml"),
			Data: payload,
		})
	}
	return matches, nil
}

func loadCompatibility(dir, mortalID string) (map[string]map[string]any, error) {
	entries, err := fs.ReadDir(todayFS, dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]any, len(entries))
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), ".yaml")
		if !strings.HasPrefix(stem, mortalID+"_") {
			continue
		}
		matchID := strings.TrimPrefix(stem, mortalID+"_")
		payload, err := loadYAML(path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out[matchID] = payload
	}
	return out, nil
}

func loadYAML(file string) (map[string]any, error) {
	raw, err := todayFS.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := yaml.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return payload, nil
}

func normalizeID(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// YAMLString re-serializes a data map for injection into agent
// instructions.
func YAMLString(payload map[string]any) string {
	raw, err := yaml.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(raw)
}
