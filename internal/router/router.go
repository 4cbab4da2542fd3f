package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"collectgame/backend/internal/handler"
	"collectgame/backend/internal/middleware"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Game    *handler.GameHandler
	Shop    *handler.ShopHandler
	Reports *handler.ReportsHandler
}

type Options struct {
	CORSOrigins   []string
	RatePerSecond float64
	RateBurst     int
	Logger        *slog.Logger
}

func New(tokens middleware.TokenParser, handlers Handlers, opts Options) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestLogger(opts.Logger), gin.Recovery(), middleware.CORS(opts.CORSOrigins))

	api := engine.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
	})

	identity := middleware.Identity(tokens)

	auth := api.Group("/auth")
	auth.POST("/login", handlers.Auth.Login)
	authUser := auth.Group("/user/:userId", identity)
	authUser.GET("", handlers.Auth.GetUser)
	authUser.PUT("", handlers.Auth.UpdateUser)
	authUser.PUT("/bonuses/:name", handlers.Auth.SetBonus)

	game := api.Group("/game")
	if opts.RatePerSecond > 0 && opts.RateBurst > 0 {
		game.Use(middleware.RateLimit(opts.RatePerSecond, opts.RateBurst))
	}
	game.POST("/start", handlers.Game.Start)
	session := game.Group("/session/:sessionId")
	session.PUT("/score", handlers.Game.UpdateScore)
	session.POST("/collect", handlers.Game.Collect)
	session.POST("/items/:itemId/use", handlers.Game.UseItem)
	session.PUT("/end", handlers.Game.End)
	session.PUT("/pause", handlers.Game.Pause)
	session.PUT("/resume", handlers.Game.Resume)
	gameUser := game.Group("/user/:userId", identity)
	gameUser.GET("/active", handlers.Game.GetActive)
	gameUser.GET("/history", handlers.Game.GetHistory)

	shop := api.Group("/shop")
	shop.GET("/items", handlers.Shop.Items)
	shop.POST("/purchase", handlers.Shop.Purchase)
	shopUser := shop.Group("/user/:userId", identity)
	shopUser.GET("/balance", handlers.Shop.Balance)
	shopUser.GET("/inventory", handlers.Shop.Inventory)

	reports := api.Group("/reports")
	reports.GET("/ranking", handlers.Reports.Ranking)
	reports.GET("/stats", handlers.Reports.Stats)
	reports.GET("/user/:userId", handlers.Reports.UserReport)
	reports.GET("/search", handlers.Reports.Search)

	return engine
}
