package announcementdb

import (
	"time"

	"github.com/uptrace/bun"
)

// MaxTextLength bounds an announcement's text.
const MaxTextLength = 1024

// Announcement is an organizer message shown to every team.
type Announcement struct {
	bun.BaseModel `bun:"table:announcements,alias:an"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Text      string    `bun:"text,notnull" json:"text"`
	CreatedOn time.Time `bun:"created_on,notnull,default:current_timestamp" json:"created_on"`
}
