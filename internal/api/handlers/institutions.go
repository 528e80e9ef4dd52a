package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/models"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/repository"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/utils"
)

type InstitutionHandler struct {
	instRepo repository.InstitutionRepository
	validate *validator.Validate
	logger   *zap.Logger
}

func NewInstitutionHandler(instRepo repository.InstitutionRepository, logger *zap.Logger) *InstitutionHandler {
	return &InstitutionHandler{
		instRepo: instRepo,
		validate: validator.New(),
		logger:   logger.With(zap.String("handler", "institution")),
	}
}

type createInstitutionRequest struct {
	Name          string `json:"name" validate:"required,min=2,max=200"`
	WalletAddress string `json:"wallet_address" validate:"required,eth_addr"`
	Authorized    *bool  `json:"authorized"`
}

// Create registers an issuing institution and returns its API key. The key
// is shown exactly once; only its bcrypt hash is stored.
func (ih *InstitutionHandler) Create(c *gin.Context) {
	var req createInstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := ih.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	apiKey, hash, err := utils.GenerateAPIKey()
	if err != nil {
		ih.logger.Error("Failed to generate API key", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "key generation failed"})
		return
	}

	authorized := true
	if req.Authorized != nil {
		authorized = *req.Authorized
	}

	institution := &models.Institution{
		Name:          req.Name,
		WalletAddress: req.WalletAddress,
		Authorized:    authorized,
		APIKeyHash:    hash,
	}
	if err := ih.instRepo.Create(c.Request.Context(), institution); err != nil {
		if errors.Is(err, repository.ErrDuplicateInstitution) {
			c.JSON(http.StatusConflict, gin.H{"error": "institution already registered"})
			return
		}
		ih.logger.Error("Failed to create institution", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	ih.logger.Info("Institution registered",
		zap.String("name", institution.Name),
		zap.String("wallet", institution.WalletAddress),
		zap.Bool("authorized", institution.Authorized))

	c.JSON(http.StatusCreated, gin.H{
		"institution": gin.H{
			"name":           institution.Name,
			"wallet_address": institution.WalletAddress,
			"authorized":     institution.Authorized,
		},
		"api_key": apiKey,
	})
}

// List returns all registered institutions without their key hashes.
func (ih *InstitutionHandler) List(c *gin.Context) {
	institutions, err := ih.instRepo.List(c.Request.Context())
	if err != nil {
		ih.logger.Error("Failed to list institutions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}

	out := make([]gin.H, 0, len(institutions))
	for _, inst := range institutions {
		out = append(out, gin.H{
			"name":           inst.Name,
			"wallet_address": inst.WalletAddress,
			"authorized":     inst.Authorized,
			"created_at":     inst.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"institutions": out})
}

type setAuthorizedRequest struct {
	Authorized bool `json:"authorized"`
}

// SetAuthorized flips the institution's issuing permission.
func (ih *InstitutionHandler) SetAuthorized(c *gin.Context) {
	wallet := c.Param("wallet")

	var req setAuthorizedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := ih.instRepo.SetAuthorized(c.Request.Context(), wallet, req.Authorized)
	if errors.Is(err, repository.ErrInstitutionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "institution not found"})
		return
	}
	if err != nil {
		ih.logger.Error("Failed to update institution", zap.String("wallet", wallet), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet_address": wallet, "authorized": req.Authorized})
}
