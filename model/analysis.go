package model

import "time"

// Analysis file keys a client may request through the file-serving
// endpoint. Anything else is rejected before touching the database.
var AnalysisFileKeys = map[string]struct{}{
	"videoFile":         {},
	"audioFile":         {},
	"amplitudePlotFile": {},
	"intensityPlotFile": {},
	"pitchPlotFile":     {},
}

type Analysis struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"index;not null" json:"userId"`

	Name      string `gorm:"not null" json:"name"`
	VideoFile string `gorm:"not null" json:"videoFile"`
	AudioFile string `gorm:"not null" json:"audioFile"`

	Amplitude FloatPairs `gorm:"type:text;not null" json:"amplitude"`
	Intensity FloatPairs `gorm:"type:text;not null" json:"intensity"`
	Pitch     FloatPairs `gorm:"type:text;not null" json:"pitch"`

	AmplitudePlotFile string `gorm:"not null" json:"amplitudePlotFile"`
	IntensityPlotFile string `gorm:"not null" json:"intensityPlotFile"`
	PitchPlotFile     string `gorm:"not null" json:"pitchPlotFile"`

	UploadTimestamp   time.Time `gorm:"not null" json:"uploadTimestamp"`
	AnalysisTimestamp time.Time `gorm:"not null" json:"analysisTimestamp"`
}

// File resolves one of the AnalysisFileKeys to the stored file name
func (a *Analysis) File(key string) (string, bool) {
	switch key {
	case "videoFile":
		return a.VideoFile, true
	case "audioFile":
		return a.AudioFile, true
	case "amplitudePlotFile":
		return a.AmplitudePlotFile, true
	case "intensityPlotFile":
		return a.IntensityPlotFile, true
	case "pitchPlotFile":
		return a.PitchPlotFile, true
	}
	return "", false
}
