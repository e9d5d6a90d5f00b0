// Package service contains the background analysis pipeline: the
// external process worker, the per-run worker pool and the
// orchestrator driving them
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rigwild/soft-skills/model"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ErrWorkerTimeout marks an external command that was killed because
// it exceeded its stage timeout
var ErrWorkerTimeout = errors.New("worker timed out")

// The analysis script prints six output file paths to stdout separated
// by this exact line, in fixed order: amplitude plot, intensity plot,
// pitch plot, amplitude data, intensity data, pitch data
const stdoutSeparator = "----------"

// AnalysisResult is everything the analysis script produced for one
// media file
type AnalysisResult struct {
	VideoFile string
	AudioFile string

	Amplitude model.FloatPairs
	Intensity model.FloatPairs
	Pitch     model.FloatPairs

	AmplitudePlotFile string
	IntensityPlotFile string
	PitchPlotFile     string
}

// Worker wraps the external repair and analysis commands. Each method
// runs exactly one command in its own OS process with a bounded
// timeout, so a hung or crashing tool can never take down the serving
// process.
type Worker struct {
	FFmpegPath string
	PythonPath string
	ScriptPath string

	RepairTimeout  time.Duration
	AnalyseTimeout time.Duration
}

func NewWorker() *Worker {
	return &Worker{
		FFmpegPath:     viper.GetString("analysis.ffmpeg_path"),
		PythonPath:     viper.GetString("analysis.python_path"),
		ScriptPath:     viper.GetString("analysis.script_path"),
		RepairTimeout:  viper.GetDuration("analysis.repair_timeout"),
		AnalyseTimeout: viper.GetDuration("analysis.timeout"),
	}
}

// FFmpegRepair rewrites the container metadata of the file at filePath
// in place. The original is moved aside first so ffmpeg can remux into
// the original path; on failure the original is moved back so a later
// retry still has its input file.
func (w *Worker) FFmpegRepair(ctx context.Context, filePath string) error {
	tmp := filePath + ".repair"
	if err := os.Rename(filePath, tmp); err != nil {
		return fmt.Errorf("failed to move file aside for repair, %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.RepairTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, w.FFmpegPath,
		"-y", "-loglevel", "error",
		"-i", tmp,
		"-c", "copy", "-movflags", "+faststart",
		filePath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	zap.L().Debug("Running ffmpeg repair", zap.String("cmd", cmd.String()))

	if err := cmd.Run(); err != nil {
		// Put the original back, a failed repair must not lose the file
		if restoreErr := os.Rename(tmp, filePath); restoreErr != nil {
			zap.L().Error("Failed to restore original file after failed repair",
				zap.String("file", filePath), zap.Error(restoreErr))
		}

		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("ffmpeg repair of %q took more than %s: %w", filePath, w.RepairTimeout, ErrWorkerTimeout)
		}

		return fmt.Errorf("ffmpeg repair failed, %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	if err := os.Remove(tmp); err != nil {
		zap.L().Warn("Failed to remove repair temp file", zap.String("file", tmp), zap.Error(err))
	}

	return nil
}

// Analyse runs the analysis script once on the media file. The script
// extracts the audio track, computes the raw series, renders the plot
// images and prints the six output paths on stdout.
func (w *Worker) Analyse(ctx context.Context, filePath string) (*AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, w.AnalyseTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, w.PythonPath, w.ScriptPath, filePath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	zap.L().Debug("Running analysis script", zap.String("cmd", cmd.String()))

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("analysis of %q took more than %s: %w", filePath, w.AnalyseTimeout, ErrWorkerTimeout)
		}

		return nil, fmt.Errorf("analysis script failed, %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	paths, err := parseScriptOutput(stdout.String())
	if err != nil {
		return nil, err
	}

	res := &AnalysisResult{
		VideoFile:         filePath,
		AudioFile:         filePath + ".wav",
		AmplitudePlotFile: paths[0],
		IntensityPlotFile: paths[1],
		PitchPlotFile:     paths[2],
	}

	if res.Amplitude, err = parseSeriesFile(paths[3]); err != nil {
		return nil, err
	}
	if res.Intensity, err = parseSeriesFile(paths[4]); err != nil {
		return nil, err
	}
	if res.Pitch, err = parseSeriesFile(paths[5]); err != nil {
		return nil, err
	}

	return res, nil
}

// parseScriptOutput splits the separator-delimited stdout of the
// analysis script. The token count is checked strictly so a partial or
// shifted output can never end up persisted under the wrong field.
func parseScriptOutput(out string) ([]string, error) {
	tokens := []string{}
	current := []string{}

	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == stdoutSeparator {
			tokens = append(tokens, strings.TrimSpace(strings.Join(current, "\n")))
			current = current[:0]
			continue
		}
		current = append(current, line)
	}
	if rest := strings.TrimSpace(strings.Join(current, "\n")); rest != "" {
		tokens = append(tokens, rest)
	}

	if len(tokens) != 6 {
		return nil, fmt.Errorf("analysis script printed %d output tokens, expected 6", len(tokens))
	}

	for _, t := range tokens {
		if t == "" {
			return nil, errors.New("analysis script printed an empty output token")
		}
	}

	return tokens, nil
}

// parseSeriesFile reads a data file of newline-separated rows of
// whitespace-separated floats (`time value`). A malformed row is a
// hard error.
func parseSeriesFile(path string) (model.FloatPairs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file, %w", err)
	}

	series := model.FloatPairs{}
	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed row %d in %q: expected 2 fields, got %d", i+1, path, len(fields))
		}

		t, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed row %d in %q: %w", i+1, path, err)
		}

		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed row %d in %q: %w", i+1, path, err)
		}

		series = append(series, [2]float64{t, v})
	}

	return series, nil
}
