package response

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
)

// errorBody is the wire shape for failures: {"error":{"message","code"}}.
type errorBody struct {
	Error *appErrors.Error `json:"error"`
}

// JSON sends a success payload as-is.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, data)
}

// Error renders any error with its mapped HTTP status.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Code, errorBody{Error: appErr})
}

// OK sends a 200 with an empty JSON object, used by delete endpoints.
func OK(c *gin.Context) {
	JSON(c, 200, gin.H{})
}
