package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"vibestack/internal/auth"
	"vibestack/internal/bucket"
	"vibestack/internal/config"
	"vibestack/internal/items"
	"vibestack/internal/llm"
	"vibestack/internal/models"
)

// Handler wires HTTP routes to the item store, the object bucket and the
// upstream LLM.
type Handler struct {
	items  *items.Service
	bucket bucket.Bucket
	llm    llm.Completer
	guard  *auth.Guard

	corsOrigin    string
	publicPrefix  string
	analyzePrompt string
	chatPrompt    string

	logger *slog.Logger
}

// Options collects the collaborators of a Handler. Bucket may be nil, in
// which case the upload routes report that storage is not configured.
type Options struct {
	Items  *items.Service
	Bucket bucket.Bucket
	LLM    llm.Completer
	Config *config.Config
	Logger *slog.Logger
}

// NewHandler constructs a Handler instance.
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Handler{
		items:         opts.Items,
		bucket:        opts.Bucket,
		llm:           opts.LLM,
		guard:         auth.NewGuard(cfg.BasicConfig.AccessToken),
		corsOrigin:    cfg.BasicConfig.CORSOrigin,
		publicPrefix:  cfg.Storage.PublicPrefix,
		analyzePrompt: cfg.AI.AnalyzePrompt,
		chatPrompt:    cfg.AI.ChatPrompt,
		logger:        logger.With(slog.String("module", "api")),
	}
}

// RegisterRoutes attaches middleware and all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.recovery(), h.corsMiddleware())
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	router.GET("/health", h.health)
	router.GET("/hello", h.hello)

	requireToken := h.guard.Middleware()

	ai := router.Group("/ai", requireToken)
	ai.POST("/analyze", h.analyze)
	ai.POST("/chat", h.chat)

	itemRoutes := router.Group("/items")
	itemRoutes.GET("", h.listItems)
	itemRoutes.GET("/:id", h.getItem)
	itemRoutes.POST("", requireToken, h.createItem)
	itemRoutes.PUT("/:id", requireToken, h.updateItem)
	itemRoutes.DELETE("/:id", requireToken, h.deleteItem)

	upload := router.Group("/upload")
	upload.POST("", h.uploadFile)
	upload.GET("/:key", h.downloadFile)
}

func (h *Handler) corsMiddleware() gin.HandlerFunc {
	allowed := parseOrigins(h.corsOrigin)
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if allowed == nil {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	})
}

func (h *Handler) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if recovered == http.ErrAbortHandler {
			panic(recovered)
		}
		h.logger.Error("unhandled panic",
			slog.String("path", c.Request.URL.Path),
			slog.String("panic", fmt.Sprint(recovered)),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": fmt.Sprint(recovered),
		})
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, models.Response[any]{Message: "ok"})
}

func (h *Handler) hello(c *gin.Context) {
	c.JSON(http.StatusOK, models.Response[models.HelloMessage]{
		Data: models.HelloMessage{Message: "Hello from Vibe API"},
	})
}
