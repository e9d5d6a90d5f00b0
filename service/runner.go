package service

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/rigwild/soft-skills/cloudflare"
	"github.com/rigwild/soft-skills/db"
	"github.com/rigwild/soft-skills/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// analyser is what the orchestrator needs from a Worker. Tests swap in
// a canned implementation.
type analyser interface {
	FFmpegRepair(ctx context.Context, filePath string) error
	Analyse(ctx context.Context, filePath string) (*AnalysisResult, error)
}

// Runner drives the full analysis pipeline for one upload: repair the
// container, run the analysis script, persist the result and finalize
// the upload state. It always runs detached from the request that
// triggered it, the HTTP response is long gone by the time it finishes.
type Runner struct {
	DB      *gorm.DB
	Worker  analyser
	Tasks   *TaskRegistry
	Archive *cloudflare.R2Client
}

func NewRunner(d *gorm.DB, archive *cloudflare.R2Client) *Runner {
	return &Runner{
		DB:      d,
		Worker:  NewWorker(),
		Tasks:   NewTaskRegistry(),
		Archive: archive,
	}
}

// Start launches a background analysis for an upload and returns
// immediately. Completion can be awaited through the task registry.
func (r *Runner) Start(userID, uploadID, filePath string) {
	done := r.Tasks.begin(uploadID)

	go func() {
		defer done()
		r.runAnalysis(userID, uploadID, filePath)
	}()
}

// runAnalysis is the pipeline body. Every error path ends in a state
// transition on the upload record, never in a propagated error: there
// is nobody left to propagate to.
func (r *Runner) runAnalysis(userID, uploadID, filePath string) {
	zap.L().Info("Starting analysis",
		zap.String("userID", userID),
		zap.String("uploadID", uploadID),
		zap.String("file", filepath.Base(filePath)))

	// One attempt, one increment, retries included
	if err := db.IncrementStat(r.DB, model.StatAnalysesTotal, 1); err != nil {
		zap.L().Error("Failed to increment analyses total count", zap.Error(err))
	}

	pool := NewWorkerPool(1)
	defer pool.DrainAndClose()

	ctx := context.Background()

	// The repair has to finish before anything reads the file, broken
	// container metadata would make the extraction undefined
	if err := <-pool.Submit(func() error { return r.Worker.FFmpegRepair(ctx, filePath) }); err != nil {
		r.fail(userID, uploadID, err)
		return
	}

	var result *AnalysisResult
	err := <-pool.Submit(func() error {
		var err error
		result, err = r.Worker.Analyse(ctx, filePath)
		return err
	})
	if err != nil {
		r.fail(userID, uploadID, err)
		return
	}

	// Re-fetch the upload now instead of trusting data captured before
	// the workers ran, the record may have been edited in the meantime
	upload, err := db.FindUpload(r.DB, userID, uploadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Error("Upload record vanished during analysis, dropping result",
				zap.String("userID", userID), zap.String("uploadID", uploadID))
			return
		}

		r.fail(userID, uploadID, err)
		return
	}

	analysis := &model.Analysis{
		UserID:            userID,
		Name:              upload.VideoFile,
		VideoFile:         upload.VideoFile,
		AudioFile:         filepath.Base(result.AudioFile),
		Amplitude:         result.Amplitude,
		Intensity:         result.Intensity,
		Pitch:             result.Pitch,
		AmplitudePlotFile: filepath.Base(result.AmplitudePlotFile),
		IntensityPlotFile: filepath.Base(result.IntensityPlotFile),
		PitchPlotFile:     filepath.Base(result.PitchPlotFile),
		UploadTimestamp:   upload.UploadTimestamp,
	}

	if err := db.CreateAnalysis(r.DB, analysis, uploadID); err != nil {
		if errors.Is(err, db.ErrUploadVanished) {
			zap.L().Error("Upload record vanished while persisting analysis, dropping result",
				zap.String("userID", userID), zap.String("uploadID", uploadID))
			return
		}

		r.fail(userID, uploadID, err)
		return
	}

	if err := db.IncrementStat(r.DB, model.StatAnalysesSuccess, 1); err != nil {
		zap.L().Error("Failed to increment analyses success count", zap.Error(err))
	}

	if r.Archive != nil {
		r.Archive.ArchiveAnalysis(ctx, filepath.Dir(filePath),
			analysis.VideoFile, analysis.AudioFile,
			analysis.AmplitudePlotFile, analysis.IntensityPlotFile, analysis.PitchPlotFile)
	}

	zap.L().Info("Successful analysis",
		zap.String("userID", userID),
		zap.String("uploadID", uploadID),
		zap.String("analysisID", analysis.ID))
}

// fail records a failed attempt on the upload. A failure to even do
// that is logged and swallowed, the detached pipeline must never crash
// the process.
func (r *Runner) fail(userID, uploadID string, cause error) {
	zap.L().Error("Analysis failed",
		zap.String("userID", userID),
		zap.String("uploadID", uploadID),
		zap.Error(cause))

	msg := cause.Error()
	err := db.SetUploadState(r.DB, userID, uploadID, model.UploadStateError, nil, &msg)
	if err != nil {
		zap.L().Error("Failed to record analysis failure on upload",
			zap.String("userID", userID),
			zap.String("uploadID", uploadID),
			zap.Error(err))
	}
}
