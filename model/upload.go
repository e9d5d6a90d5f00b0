package model

import "time"

// Upload states. An upload starts out pending and ends up either
// finished (analysisId set) or error (errorMessage set). An errored
// upload can be reset to pending by the retry endpoint as long as it
// never produced an analysis.
const (
	UploadStatePending  = "pending"
	UploadStateFinished = "finished"
	UploadStateError    = "error"
)

type Upload struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"index;not null" json:"-"`

	// Stored file name, prefixed with a random id so concurrent uploads
	// of files with the same name never collide on disk
	VideoFile string `gorm:"uniqueIndex;not null" json:"videoFile"`

	State        string  `gorm:"not null;default:pending" json:"state"`
	ErrorMessage *string `json:"errorMessage"`
	AnalysisID   *string `json:"analysisId"`

	UploadTimestamp        time.Time `gorm:"not null" json:"uploadTimestamp"`
	LastStateEditTimestamp time.Time `gorm:"not null" json:"lastStateEditTimestamp"`
}
