package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wedding/internal/auth"
	"wedding/internal/httpmiddleware"
)

// RouterConfig holds the HTTP-level settings.
type RouterConfig struct {
	AdminToken          string
	CORSOrigins         []string
	RateLimitPerMin     int
	AuthRateLimitPerMin int
	Gatherer            prometheus.Gatherer
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(h.Log, "/healthz", "/metrics"))
	r.Use(httpmiddleware.CORS(cfg.CORSOrigins))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.POST("/rsvps", h.SubmitRSVP)
		api.GET("/seating-chart", h.SeatingChart)
		api.GET("/dietary/options", h.DietaryOptions)
		api.GET("/messages", h.ListMessages)
		api.POST("/messages", h.PostMessage)

		verifyLimit := httpmiddleware.NewTokenBucket(cfg.AuthRateLimitPerMin, cfg.AuthRateLimitPerMin)
		api.POST("/auth/verify", verifyLimit.GinMiddleware(), h.Verify)

		api.GET("/content/:section", auth.OptionalGuest(h.Auth, h.SigningKey, h.Issuer), h.Section)
	}

	guestOnly := api.Group("", auth.GuestAuth(h.Auth, h.SigningKey, h.Issuer))
	{
		guestOnly.GET("/auth/me", h.Me)
		guestOnly.POST("/auth/logout", h.Logout)
		guestOnly.PUT("/attendance", h.UpdateAttendance)
		guestOnly.GET("/dietary", h.GetDietary)
		guestOnly.PUT("/dietary", h.SaveDietary)
		guestOnly.GET("/songs", h.ListSongs)
		guestOnly.POST("/songs", h.RequestSong)
	}

	admin := api.Group("/admin", auth.AdminAuth(cfg.AdminToken))
	{
		admin.GET("/seating", h.Board)
		admin.POST("/seating/move", h.Move)
		admin.GET("/guests", h.ListGuests)
		admin.PUT("/guests/:id/seat", h.AssignSeat)
	}
	return r
}
