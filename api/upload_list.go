package api

import (
	"net/http"

	"github.com/rigwild/soft-skills/db"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) UploadList(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	uploads, err := db.ListUploads(a.DB, userID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list uploads", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, uploads)
}
