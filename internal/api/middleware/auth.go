package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/repository"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/utils"
)

// AuthMiddleware authenticates issuing institutions by wallet address plus
// the API key handed out at registration, and gates the admin surface behind
// a shared admin key.
type AuthMiddleware struct {
	instRepo repository.InstitutionRepository
	adminKey string
	logger   *zap.Logger
}

func NewAuthMiddleware(instRepo repository.InstitutionRepository, adminKey string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		instRepo: instRepo,
		adminKey: adminKey,
		logger:   logger,
	}
}

// RequireInstitution checks X-Wallet-Address and X-API-Key against the stored
// bcrypt hash and stores the institution in the context.
func (am *AuthMiddleware) RequireInstitution() gin.HandlerFunc {
	return func(c *gin.Context) {
		wallet := c.GetHeader("X-Wallet-Address")
		apiKey := c.GetHeader("X-API-Key")
		if wallet == "" || apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing X-Wallet-Address or X-API-Key header",
			})
			return
		}

		institution, err := am.instRepo.GetByWallet(c.Request.Context(), wallet)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unknown institution",
			})
			return
		}

		if ok, err := utils.VerifyAPIKey(institution.APIKeyHash, apiKey); err != nil || !ok {
			am.logger.Warn("Rejected API key",
				zap.String("wallet", wallet),
				zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid API key",
			})
			return
		}

		c.Set("institution", institution)
		c.Set("wallet", institution.WalletAddress)
		c.Next()
	}
}

// RequireAdmin gates institution management behind the configured admin key.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if am.adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "admin API is not configured",
			})
			return
		}
		provided := c.GetHeader("X-Admin-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(am.adminKey)) != 1 {
			am.logger.Warn("Rejected admin key", zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid admin key",
			})
			return
		}
		c.Next()
	}
}
