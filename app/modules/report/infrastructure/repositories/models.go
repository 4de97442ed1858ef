package reportdb

import (
	"time"

	"github.com/uptrace/bun"
)

// Report statuses.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Report is one requested chess report.
type Report struct {
	bun.BaseModel `bun:"table:reports,alias:r"`

	ID            int64      `bun:"id,pk,autoincrement" json:"-"`
	PublicID      string     `bun:"public_id,notnull,unique" json:"report_id"`
	Username      string     `bun:"username,notnull" json:"username"`
	Platform      string     `bun:"platform,notnull" json:"platform"`
	NumberOfGames int        `bun:"number_of_games,notnull" json:"number_of_games"`
	TimeControl   string     `bun:"time_control" json:"time_control"`
	Since         *time.Time `bun:"since" json:"since,omitempty"`
	Status        string     `bun:"status,notnull" json:"status"`
	Error         string     `bun:"error" json:"error,omitempty"`
	ExecutionTime *float64   `bun:"execution_time" json:"execution_time,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}
