package archivedb

import (
	"time"

	"github.com/uptrace/bun"
)

// Tombstone is the snapshot written before a row is physically removed.
// Content is "TypeName: <json>".
type Tombstone struct {
	bun.BaseModel `bun:"table:deleted,alias:dl"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	TypeName  string    `bun:"type_name,notnull" json:"type_name"`
	Content   string    `bun:"content,notnull" json:"content"`
	CreatedOn time.Time `bun:"created_on,notnull,default:current_timestamp" json:"created_on"`
}
