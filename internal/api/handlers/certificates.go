package handlers

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/repository"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/fingerprint"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/services"
)

type CertificateHandler struct {
	issuanceService *services.IssuanceService
	certRepo        repository.CertificateRepository
	maxUploadSize   int64
	logger          *zap.Logger
}

func NewCertificateHandler(
	issuanceService *services.IssuanceService,
	certRepo repository.CertificateRepository,
	maxUploadSize int64,
	logger *zap.Logger,
) *CertificateHandler {
	return &CertificateHandler{
		issuanceService: issuanceService,
		certRepo:        certRepo,
		maxUploadSize:   maxUploadSize,
		logger:          logger.With(zap.String("handler", "certificate")),
	}
}

// Issue accepts a multipart upload with the original certificate PDF and the
// student metadata, and returns the registered record plus the stamped PDF.
func (ch *CertificateHandler) Issue(c *gin.Context) {
	wallet := c.GetString("wallet")

	pdfData, err := readUpload(c, "file", ch.maxUploadSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := services.IssueRequest{
		StudentName:       c.PostForm("student_name"),
		RollNumber:        c.PostForm("roll_number"),
		Course:            c.PostForm("course"),
		InstitutionWallet: wallet,
	}
	if req.StudentName == "" || req.Course == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "student_name and course are required"})
		return
	}

	result, err := ch.issuanceService.Issue(c.Request.Context(), req, pdfData)
	switch {
	case errors.Is(err, services.ErrPartialRegistration):
		// Registered on chain; the index row is queued. Tell the caller.
		c.JSON(http.StatusAccepted, gin.H{
			"warning":     err.Error(),
			"certificate": certificateResponse(result),
		})
		return
	case errors.Is(err, services.ErrInstitutionNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case errors.Is(err, services.ErrDuplicateDocument):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, fingerprint.ErrUnreadablePDF), errors.Is(err, fingerprint.ErrInsufficientText):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		ch.logger.Error("Failed to issue certificate",
			zap.String("student_name", req.StudentName),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "certificate registration failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"certificate": certificateResponse(result)})
}

// Get returns the stored index record for a certificate id.
func (ch *CertificateHandler) Get(c *gin.Context) {
	certificateID := c.Param("id")

	record, err := ch.certRepo.GetByCertificateID(c.Request.Context(), certificateID)
	if errors.Is(err, repository.ErrCertificateNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "certificate not found"})
		return
	}
	if err != nil {
		ch.logger.Error("Failed to load certificate", zap.String("certificate_id", certificateID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"certificate": record})
}

// List returns the certificates issued by the authenticated institution.
func (ch *CertificateHandler) List(c *gin.Context) {
	wallet := c.GetString("wallet")

	records, err := ch.certRepo.ListByInstitution(c.Request.Context(), wallet, 100)
	if err != nil {
		ch.logger.Error("Failed to list certificates", zap.String("wallet", wallet), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"certificates": records})
}

// Revoke flags the certificate on chain and in the index.
func (ch *CertificateHandler) Revoke(c *gin.Context) {
	wallet := c.GetString("wallet")
	certificateID := c.Param("id")
	reason := c.PostForm("reason")
	if reason == "" {
		reason = "revoked by issuer"
	}

	err := ch.issuanceService.Revoke(c.Request.Context(), certificateID, wallet, reason)
	switch {
	case errors.Is(err, repository.ErrCertificateNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "certificate not found"})
		return
	case errors.Is(err, services.ErrInstitutionNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "only the issuing institution can revoke"})
		return
	case err != nil:
		ch.logger.Error("Failed to revoke certificate",
			zap.String("certificate_id", certificateID),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "revocation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"certificate_id": certificateID, "revoked": true})
}

func certificateResponse(result *services.IssueResult) gin.H {
	resp := gin.H{
		"certificate_id":     result.Record.CertificateID,
		"student_name":       result.Record.StudentName,
		"roll_number":        result.Record.RollNumber,
		"course":             result.Record.Course,
		"content_hash":       result.Record.ContentHash,
		"institution_wallet": result.Record.InstitutionWallet,
		"tx_hash":            result.TxHash,
		"issued_at":          result.Record.IssuedAt,
		"extraction_method":  string(result.Fingerprint.Method),
	}
	if len(result.StampedPDF) > 0 {
		resp["stamped_pdf"] = base64.StdEncoding.EncodeToString(result.StampedPDF)
	}
	return resp
}

// readUpload reads one multipart file field, enforcing the size bound.
func readUpload(c *gin.Context, field string, maxSize int64) ([]byte, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, errors.New("missing file upload")
	}
	if maxSize > 0 && fileHeader.Size > maxSize {
		return nil, errors.New("uploaded file is too large")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if maxSize > 0 {
		return io.ReadAll(io.LimitReader(file, maxSize+1))
	}
	return io.ReadAll(file)
}
