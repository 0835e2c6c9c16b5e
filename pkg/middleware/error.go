package middleware

import (
	"errors"
	"net/http"

	"pos-licensing/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Error renders the last gin error as the errutil JSON envelope. Unknown
// errors are collapsed to a generic internal response so nothing leaks.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}

		var base errutil.BaseError
		if errors.As(last.Err, &base) {
			c.JSON(base.Code.HTTPStatus(), base.JSON())
			return
		}

		c.JSON(http.StatusInternalServerError, errutil.BaseError{
			Code:    errutil.StatusInternal,
			Message: "internal error",
		}.JSON())
	}
}
