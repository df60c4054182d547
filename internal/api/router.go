package api

import (
	"github.com/gin-gonic/gin"
)

// Handlers everything RegisterRoutes mounts
type Handlers struct {
	Ads     *AdsHandler
	Clients *ClientHandler
	Users   *UserHandler
}

// RegisterRoutes mounts the /api tree behind bearer authentication.
func RegisterRoutes(r gin.IRouter, h Handlers, jwtSecret string) {
	apiGroup := r.Group("/api", Authenticate(jwtSecret))
	apiGroup.GET("/me", Me)

	fb := apiGroup.Group("/facebook")
	fb.POST("/smart-sync", h.Ads.SmartSync)
	fb.GET("/availability", h.Ads.Availability)
	fb.POST("/sync", h.Ads.Sync)
	fb.GET("/sync/latest", h.Ads.LatestRun)
	fb.GET("/sync/:run_id", h.Ads.GetRun)
	fb.GET("/data/ads", h.Ads.ListAds)
	fb.GET("/data/account", h.Ads.AccountSummary)
	fbAdmin := fb.Group("", RequireAdmin())
	fbAdmin.DELETE("/data", h.Ads.Purge)
	fbAdmin.POST("/sweep", h.Ads.Sweep)
	fbAdmin.GET("/credentials", h.Ads.ListCredentials)
	fbAdmin.POST("/credentials", h.Ads.CreateCredential)
	fbAdmin.DELETE("/credentials/:id", h.Ads.DeleteCredential)

	clients := apiGroup.Group("/clients")
	clients.GET("", h.Clients.ListClients)
	clients.GET("/:id", h.Clients.GetClient)
	clientsAdmin := clients.Group("", RequireAdmin())
	clientsAdmin.POST("", h.Clients.CreateClient)
	clientsAdmin.PUT("/:id", h.Clients.UpdateClient)
	clientsAdmin.DELETE("/:id", h.Clients.DeleteClient)

	users := apiGroup.Group("/users", RequireAdmin())
	users.GET("", h.Users.ListUsers)
	users.GET("/:id", h.Users.GetUser)
	users.POST("", h.Users.CreateUser)
	users.PUT("/:id", h.Users.UpdateUser)
	users.DELETE("/:id", h.Users.DeleteUser)
}
