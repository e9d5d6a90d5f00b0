package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rigwild/soft-skills/db"
	"github.com/rigwild/soft-skills/model"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (a *API) ProfileFetch(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var user model.User
	if err := a.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":     "User not found.",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load user profile", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, user)
}

type profileEditBody struct {
	Name string `json:"name"`
}

func (a *API) ProfileEdit(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var data profileEditBody
	if err := c.ShouldBind(&data); err != nil || data.Name == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No profile data to edit.",
			"requestID": requestID,
		})
		return
	}

	res := a.DB.
		Model(model.User{}).
		Where("id = ?", userID).
		Update("name", data.Name)
	if res.Error != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to edit user profile", zap.Error(res.Error), zap.String("requestID", requestID))
		return
	}

	if res.RowsAffected == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "User not found.",
			"requestID": requestID,
		})
		return
	}

	zap.L().Info("A user profile was edited", zap.String("userID", userID))

	c.JSON(http.StatusOK, gin.H{
		"name": data.Name,
	})
}

// ProfileDelete removes the account with all its uploads, analyses and
// stored files
func (a *API) ProfileDelete(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	// Wait for in-flight analyses before pulling records out from
	// under them
	a.Runner.Tasks.WaitAll()

	var analyses []model.Analysis
	if err := a.DB.Where("user_id = ?", userID).Find(&analyses).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list analyses to delete", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	var uploads []model.Upload
	if err := a.DB.Where("user_id = ?", userID).Find(&uploads).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list uploads to delete", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	err := a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.Analysis{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.Upload{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", userID).Delete(&model.User{}).Error
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	uploadsDir := viper.GetString("uploads.dir")
	for _, analysis := range analyses {
		removeAnalysisFiles(uploadsDir, &analysis)
	}
	for _, upload := range uploads {
		if upload.AnalysisID == nil {
			os.Remove(filepath.Join(uploadsDir, upload.VideoFile))
		}
	}

	if err := db.IncrementStat(a.DB, model.StatUsers, -1); err != nil {
		zap.L().Error("Failed to decrement users count", zap.Error(err), zap.String("requestID", requestID))
	}

	zap.L().Info("A user was deleted", zap.String("userID", userID))

	c.Status(http.StatusOK)
}
