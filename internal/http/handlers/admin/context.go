package admin

import (
	handlershared "github.com/paysub/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getOperatorID(c *gin.Context) (uint, bool) {
	return handlershared.GetUserID(c)
}
