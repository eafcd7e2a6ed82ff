package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RosterEntry is one volunteer in the sync roster.
type RosterEntry struct {
	PersonID  string   `yaml:"person_id"`
	Active    []string `yaml:"active"`
	Completed []string `yaml:"completed"`
}

// Roster is the list of volunteers the run loop keeps synchronized.
type Roster struct {
	Volunteers []RosterEntry `yaml:"volunteers"`
}

// loadRoster reads and validates the roster file. Every entry needs a person
// id and ids must be unique; team keys are not validated here because unknown
// keys degrade gracefully during resolution.
func loadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster file: %w", err)
	}
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing roster file %s: %w", path, err)
	}

	seen := make(map[string]bool, len(r.Volunteers))
	for i, entry := range r.Volunteers {
		if entry.PersonID == "" {
			return nil, fmt.Errorf("roster entry %d: person_id is required", i)
		}
		if seen[entry.PersonID] {
			return nil, fmt.Errorf("roster entry %d: duplicate person_id %q", i, entry.PersonID)
		}
		seen[entry.PersonID] = true
	}
	return &r, nil
}
