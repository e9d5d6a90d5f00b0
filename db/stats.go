package db

import (
	"fmt"

	"github.com/rigwild/soft-skills/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// statsRow makes sure the singleton counters row exists
func statsRow(d *gorm.DB) error {
	return d.FirstOrCreate(&model.Stats{}, model.Stats{ID: 1}).Error
}

// IncrementStat bumps one of the global counters by delta. The update
// runs as a single atomic statement at the storage layer so concurrent
// in-flight analyses never lose increments.
func IncrementStat(d *gorm.DB, name string, delta int64) error {
	switch name {
	case model.StatAnalysesTotal, model.StatAnalysesSuccess, model.StatUsers:
	default:
		return fmt.Errorf("unknown statistic %q", name)
	}

	if err := statsRow(d); err != nil {
		return err
	}

	err := d.
		Model(model.Stats{}).
		Where("id = ?", 1).
		Update(name, gorm.Expr(name+" + ?", delta)).
		Error
	if err != nil {
		return err
	}

	zap.L().Debug("Updated statistic", zap.String("name", name), zap.Int64("delta", delta))
	return nil
}

// ReadStats returns the global counters, lazily initialized to zero
func ReadStats(d *gorm.DB) (*model.Stats, error) {
	if err := statsRow(d); err != nil {
		return nil, err
	}

	var stats model.Stats
	if err := d.First(&stats, 1).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}
