package rosterdb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// Team is a competing team. Test teams never score and their flags are never
// worth anything.
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:tm"`

	ID          sharedtypes.TeamID `bun:"id,pk,autoincrement" json:"id"`
	Name        string             `bun:"name,notnull" json:"name"`
	TeamNetwork string             `bun:"team_network,notnull" json:"team_network"`
	VMAddress   string             `bun:"vm_address,notnull" json:"vm_address"`
	IsTestTeam  bool               `bun:"is_test_team,notnull,default:false" json:"is_test_team"`
	CreatedOn   time.Time          `bun:"created_on,notnull,default:current_timestamp" json:"created_on"`
}

// Service is a competition target. The deployment fields are owned by the
// deployment pipeline; the engine only stores and serves them.
type Service struct {
	bun.BaseModel `bun:"table:services,alias:sv"`

	ID               sharedtypes.ServiceID      `bun:"id,pk,autoincrement" json:"id"`
	Name             string                     `bun:"name,notnull" json:"name"`
	Description      string                     `bun:"description,notnull" json:"description"`
	Type             sharedtypes.ServiceType    `bun:"type,notnull" json:"type"`
	Port             int                        `bun:"port,notnull" json:"port"`
	RepoURL          string                     `bun:"repo_url,notnull" json:"repo_url"`
	ScoreLocation    *string                    `bun:"score_location" json:"score_location,omitempty"`
	FlagLocation     *string                    `bun:"flag_location" json:"flag_location,omitempty"`
	CentralServer    *string                    `bun:"central_server" json:"central_server,omitempty"`
	Isolation        *sharedtypes.IsolationType `bun:"isolation" json:"isolation,omitempty"`
	ContainerPort    *int                       `bun:"container_port" json:"container_port,omitempty"`
	LimitMemory      string                     `bun:"limit_memory,notnull,default:'512m'" json:"limit_memory"`
	RequestMemory    string                     `bun:"request_memory,notnull,default:'512m'" json:"request_memory"`
	MaxBytes         *int                       `bun:"max_bytes" json:"max_bytes,omitempty"`
	CheckTimeout     *int                       `bun:"check_timeout" json:"check_timeout,omitempty"`
	IsManualPatching bool                       `bun:"is_manual_patching,notnull,default:false" json:"is_manual_patching"`
	CreatedOn        time.Time                  `bun:"created_on,notnull,default:current_timestamp" json:"created_on"`
}

// IsKingOfTheHill reports whether the service is scored by ranking.
func (s *Service) IsKingOfTheHill() bool {
	return s.Type == sharedtypes.ServiceTypeKingOfTheHill
}
