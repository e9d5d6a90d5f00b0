package api

import (
	"net/http"
	"path/filepath"

	"github.com/rigwild/soft-skills/db"
	"github.com/rigwild/soft-skills/validators"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// UploadCreate stores an uploaded media file, creates its pending
// upload record and responds right away. The analysis itself runs
// detached, the client polls the uploads list for its state.
func (a *API) UploadCreate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	fh, err := c.FormFile("content")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     validators.ErrNoFile.Error(),
			"requestID": requestID,
		})
		return
	}

	if err := validators.UploadFileValidator(fh); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	// Random prefix so same-named files of concurrent uploads never
	// collide in the shared uploads directory
	uniqueID, err := gonanoid.Generate(idCharset, 8)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate file prefix", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	videoFile := uniqueID + "_" + filepath.Base(fh.Filename)
	dest := filepath.Join(viper.GetString("uploads.dir"), videoFile)

	if err := c.SaveUploadedFile(fh, dest); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to store uploaded file", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	upload, err := db.CreatePendingUpload(a.DB, userID, videoFile)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create upload record", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, upload)

	// Response is sent, everything from here on is detached work
	a.Runner.Start(userID, upload.ID, dest)
}
