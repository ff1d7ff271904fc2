package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pders01/folio/internal/query"
	"github.com/pders01/folio/internal/storage"
)

// writeStoreError maps store and query errors onto the API error body.
func writeStoreError(c *gin.Context, err error) {
	_ = c.Error(err)

	var verr *query.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(c, http.StatusBadRequest, "Something went wrong while processing your request.", gin.H{
			verr.Field: gin.H{
				"code":    "validation_invalid_value",
				"message": verr.Error(),
			},
		})
	case errors.Is(err, storage.ErrNotFound):
		writeError(c, http.StatusNotFound, "The requested resource wasn't found.", nil)
	default:
		writeError(c, http.StatusInternalServerError, "Something went wrong while processing your request.", nil)
	}
}

func writeError(c *gin.Context, status int, message string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	c.AbortWithStatusJSON(status, gin.H{
		"code":    status,
		"message": message,
		"data":    data,
	})
}
