package api

import (
	"github.com/gin-gonic/gin"

	oerrors "github.com/otherjamesbrown/penf-outreach/pkg/errors"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// abortWithCode writes the registered status and message for code.
func abortWithCode(c *gin.Context, code oerrors.ErrorCode) {
	c.AbortWithStatusJSON(oerrors.HTTPStatus(code), ErrorResponse{Error: oerrors.Message(code)})
}
