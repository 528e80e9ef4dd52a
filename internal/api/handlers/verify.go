package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/services"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/verify"
)

type VerificationHandler struct {
	verificationService *services.VerificationService
	maxUploadSize       int64
	logger              *zap.Logger
}

func NewVerificationHandler(
	verificationService *services.VerificationService,
	maxUploadSize int64,
	logger *zap.Logger,
) *VerificationHandler {
	return &VerificationHandler{
		verificationService: verificationService,
		maxUploadSize:       maxUploadSize,
		logger:              logger.With(zap.String("handler", "verification")),
	}
}

// Verify accepts a re-uploaded certificate PDF and returns the reconciled
// verdict. Anyone may call it; no authentication is required.
func (vh *VerificationHandler) Verify(c *gin.Context) {
	pdfData, err := readUpload(c, "file", vh.maxUploadSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verifierAddress := c.PostForm("verifier_address")

	verdict, err := vh.verificationService.Verify(c.Request.Context(), pdfData, verifierAddress)
	if errors.Is(err, verify.ErrNoEvidence) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "no content hash could be derived from the document",
		})
		return
	}
	if errors.Is(err, services.ErrStoreUnavailable) {
		vh.logger.Error("Verification lookup unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "verification is temporarily unavailable, try again later",
		})
		return
	}
	if err != nil {
		vh.logger.Error("Verification failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"verdict": verdict})
}

// ListRecent returns the newest verification log entries.
func (vh *VerificationHandler) ListRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	entries, err := vh.verificationService.ListRecent(c.Request.Context(), limit)
	if err != nil {
		vh.logger.Error("Failed to list verifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"verifications": entries})
}
