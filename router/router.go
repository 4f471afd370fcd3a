package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-qr/config"
	"github.com/yeremiapane/restaurant-qr/controllers"
	"github.com/yeremiapane/restaurant-qr/hub"
	"github.com/yeremiapane/restaurant-qr/middlewares"
	"github.com/yeremiapane/restaurant-qr/services"
	"github.com/yeremiapane/restaurant-qr/utils"
)

// Deps is everything the router wires together. Now defaults to time.Now and
// Hub to a fresh hub.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Hub    *hub.Hub
	Now    func() time.Time
}

func SetupRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Hub == nil {
		deps.Hub = hub.New()
	}
	started := deps.Now()

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		utils.ErrorLogger.WithError(err).Error("invalid TRUSTED_PROXIES, trusting none")
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		utils.ErrorLogger.WithField("panic", recovered).Error("recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR"})
	}))
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders(cfg.IsProduction()))
	r.Use(middlewares.CORSMiddlewares(cfg.AllowedOrigins()))

	signer := utils.NewLinkSigner(cfg.QRSecret, cfg.LinkTTL(), cfg.FrontURL, cfg.QRTargetPath, deps.Now)
	sessions := services.NewTableSessionService(deps.DB, cfg.SessionTTL(), deps.Hub, deps.Now)
	qrService := services.NewQRService(deps.DB, signer, cfg.QRImageSize)

	// Inisialisasi controller
	qrCtrl := controllers.NewQRController(qrService, sessions, signer, cfg.IsProduction())
	orderCtrl := controllers.NewOrderController(deps.DB)
	requireSession := middlewares.RequireTableSession(sessions)
	validateLimiter := middlewares.NewRateLimiter(cfg.ValidateRatePerMinute)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/healthz", controllers.Health(cfg.AppEnv, cfg.Port, started))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// QR image, e.g. /qr/12.png
	r.GET("/qr/:file", qrCtrl.GenerateSignedQR)

	api := r.Group("/api")
	{
		api.GET("/qr-codes/:tableNumber", qrCtrl.GetSignedQR)
		api.GET("/qr/validate", validateLimiter.RateLimit(), qrCtrl.ValidateAndCreateSession)
		api.POST("/tables/release", requireSession, qrCtrl.ReleaseTable)
	}

	// ----------------------------------------------------------------
	//                      TABLE SESSION ROUTES
	// ----------------------------------------------------------------
	orders := r.Group("/orders")
	orders.Use(requireSession)
	{
		orders.POST("", orderCtrl.CreateOrder)
		orders.GET("/table/:table_id", middlewares.EnsureSameTable("table_id"), orderCtrl.GetOrdersByTable)
	}

	// Staff feed
	r.GET("/ws/tables", middlewares.StaffTokenMiddleware(cfg.StaffToken),
		controllers.StaffFeedHandler(deps.Hub, cfg.AllowedOrigins()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND", "path": c.Request.URL.Path})
	})

	return r
}
