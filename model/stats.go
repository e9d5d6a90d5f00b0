package model

// Stats is a single global row of service-wide counters. It is only
// ever mutated through atomic increments in the db package, never
// read-modify-write from handlers.
type Stats struct {
	ID                   uint  `gorm:"primaryKey" json:"-"`
	AnalysesTotalCount   int64 `gorm:"not null;default:0" json:"analysesTotalCount"`
	AnalysesSuccessCount int64 `gorm:"not null;default:0" json:"analysesSuccessCount"`
	UsersCount           int64 `gorm:"not null;default:0" json:"usersCount"`
}

// Counter column names accepted by db.IncrementStat
const (
	StatAnalysesTotal   = "analyses_total_count"
	StatAnalysesSuccess = "analyses_success_count"
	StatUsers           = "users_count"
)
