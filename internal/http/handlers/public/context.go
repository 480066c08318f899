package public

import (
	handlershared "github.com/stakehub-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "user_id")
}

func getUserWallet(c *gin.Context) (string, bool) {
	return handlershared.GetContextString(c, "user_wallet")
}
