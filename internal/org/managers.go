// Package org loads the static user-to-manager mapping. The map is read in
// full at startup and never mutated at runtime.
package org

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Managers maps a user identifier to their manager's identifier.
type Managers map[string]string

// LoadManagers reads the manager map from a JSON document of the shape
// {"U1": "M1", ...}. A missing file yields an empty map; the bot runs
// without manager notifications in that case.
func LoadManagers(path string) (Managers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("no manager map file, manager notifications disabled", "path", path)
			return Managers{}, nil
		}
		return nil, fmt.Errorf("reading manager map %s: %w", path, err)
	}

	var m Managers
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manager map %s: %w", path, err)
	}
	if m == nil {
		m = Managers{}
	}
	return m, nil
}

// ManagerOf returns the manager mapped to userID, if any.
func (m Managers) ManagerOf(userID string) (string, bool) {
	managerID, ok := m[userID]
	if !ok || managerID == "" {
		return "", false
	}
	return managerID, true
}
