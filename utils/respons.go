package utils

import (
	"github.com/gin-gonic/gin"
)

type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, err error) {
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: err.Error(),
		Data:    nil,
	})
}

// ReasonResponse is the body of the QR/session endpoints, which the customer
// frontend reads as {ok, reason}.
type ReasonResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// RespondReason writes {ok:false, reason} and aborts the handler chain.
func RespondReason(c *gin.Context, code int, reason string) {
	c.AbortWithStatusJSON(code, ReasonResponse{OK: false, Reason: reason})
}
