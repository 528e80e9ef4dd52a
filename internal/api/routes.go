package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/api/handlers"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/api/middleware"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/config"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/repository"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/services"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/pkg/metrics"
)

type Router struct {
	engine             *gin.Engine
	logger             *zap.Logger
	metrics            *metrics.MetricsCollector
	certHandler        *handlers.CertificateHandler
	verifyHandler      *handlers.VerificationHandler
	institutionHandler *handlers.InstitutionHandler
	authMiddleware     *middleware.AuthMiddleware
	reqMiddleware      *middleware.RequestMiddleware
}

func NewRouter(
	cfg *config.Configuration,
	logger *zap.Logger,
	collector *metrics.MetricsCollector,
	issuanceService *services.IssuanceService,
	verificationService *services.VerificationService,
	certRepo repository.CertificateRepository,
	instRepo repository.InstitutionRepository,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.MaxMultipartMemory = cfg.Server.MaxUploadSize

	reqMiddleware := middleware.NewRequestMiddleware(logger)
	authMiddleware := middleware.NewAuthMiddleware(instRepo, cfg.Server.AdminAPIKey, logger)

	engine.Use(reqMiddleware.ProcessRequest())
	engine.Use(reqMiddleware.RecoverPanic())

	certHandler := handlers.NewCertificateHandler(issuanceService, certRepo, cfg.Server.MaxUploadSize, logger)
	verifyHandler := handlers.NewVerificationHandler(verificationService, cfg.Server.MaxUploadSize, logger)
	institutionHandler := handlers.NewInstitutionHandler(instRepo, logger)

	return &Router{
		engine:             engine,
		logger:             logger,
		metrics:            collector,
		certHandler:        certHandler,
		verifyHandler:      verifyHandler,
		institutionHandler: institutionHandler,
		authMiddleware:     authMiddleware,
		reqMiddleware:      reqMiddleware,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "up", "name": "cert-check-chain"})
	})

	r.engine.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"counters":  r.metrics.GetCounters(),
			"latencies": r.metrics.GetLatencies(),
			"sizes":     r.metrics.GetSizes(),
		})
	})

	apiGroup := r.engine.Group("/api")

	// Public verification surface: anyone can re-upload and check a document.
	apiGroup.POST("/verify", r.reqMiddleware.UploadThrottleMiddleware(), r.verifyHandler.Verify)
	apiGroup.GET("/verifications", r.verifyHandler.ListRecent)
	apiGroup.GET("/certificates/:id", r.certHandler.Get)

	// Issuing surface: institution API key required.
	issuing := apiGroup.Group("/certificates")
	issuing.Use(r.authMiddleware.RequireInstitution())
	{
		issuing.POST("", r.certHandler.Issue)
		issuing.GET("", r.certHandler.List)
		issuing.POST("/:id/revoke", r.certHandler.Revoke)
	}

	// Admin surface: institution management.
	admin := apiGroup.Group("/institutions")
	admin.Use(r.authMiddleware.RequireAdmin())
	{
		admin.POST("", r.institutionHandler.Create)
		admin.GET("", r.institutionHandler.List)
		admin.POST("/:wallet/authorize", r.institutionHandler.SetAuthorized)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

func (r *Router) Run(addr string) error {
	r.logger.Info("Starting HTTP server", zap.String("address", addr))
	return r.engine.Run(addr)
}
