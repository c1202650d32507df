package admin

import (
	"errors"

	handlershared "github.com/paysub/internal/http/handlers/shared"
	"github.com/paysub/internal/http/response"
	"github.com/paysub/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondOpsReadError(c *gin.Context, err error, fallbackKey string) {
	if errors.Is(err, service.ErrOrderNotFound) {
		respondError(c, response.CodeNotFound, "error.order_not_found", nil)
		return
	}
	respondError(c, response.CodeInternal, fallbackKey, err)
}
