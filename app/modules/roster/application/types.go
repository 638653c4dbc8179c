package rosterservice

import (
	"fmt"
	"os"

	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"gopkg.in/yaml.v3"
)

// TeamInput carries the fields needed to register a team.
type TeamInput struct {
	Name        string `yaml:"name" json:"name"`
	TeamNetwork string `yaml:"team_network" json:"team_network"`
	VMAddress   string `yaml:"vm_address" json:"vm_address"`
	IsTestTeam  bool   `yaml:"is_test_team" json:"is_test_team"`
}

// ServiceInput carries the fields needed to register a service.
type ServiceInput struct {
	Name             string                     `yaml:"name" json:"name"`
	Description      string                     `yaml:"description" json:"description"`
	Type             sharedtypes.ServiceType    `yaml:"type" json:"type"`
	Port             int                        `yaml:"port" json:"port"`
	RepoURL          string                     `yaml:"repo_url" json:"repo_url"`
	ScoreLocation    *string                    `yaml:"score_location" json:"score_location,omitempty"`
	FlagLocation     *string                    `yaml:"flag_location" json:"flag_location,omitempty"`
	CentralServer    *string                    `yaml:"central_server" json:"central_server,omitempty"`
	Isolation        *sharedtypes.IsolationType `yaml:"isolation" json:"isolation,omitempty"`
	ContainerPort    *int                       `yaml:"container_port" json:"container_port,omitempty"`
	LimitMemory      string                     `yaml:"limit_memory" json:"limit_memory"`
	RequestMemory    string                     `yaml:"request_memory" json:"request_memory"`
	MaxBytes         *int                       `yaml:"max_bytes" json:"max_bytes,omitempty"`
	CheckTimeout     *int                       `yaml:"check_timeout" json:"check_timeout,omitempty"`
	IsManualPatching bool                       `yaml:"is_manual_patching" json:"is_manual_patching"`
}

// RosterFile is the on-disk shape consumed by the seed command.
type RosterFile struct {
	Teams    []TeamInput    `yaml:"teams"`
	Services []ServiceInput `yaml:"services"`
}

// SeedResult reports what a seed run created and what it found in place.
type SeedResult struct {
	TeamsCreated    int `json:"teams_created"`
	TeamsSkipped    int `json:"teams_skipped"`
	ServicesCreated int `json:"services_created"`
	ServicesSkipped int `json:"services_skipped"`
}

// LoadRosterFile reads a YAML roster from disk.
func LoadRosterFile(path string) (*RosterFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file %s: %w", path, err)
	}
	var roster RosterFile
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to parse roster file %s: %w", path, err)
	}
	return &roster, nil
}
