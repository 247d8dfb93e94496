package webserver

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/gaia-dao/campaigns/src/CampApi/config"
	"github.com/gaia-dao/campaigns/src/CampApi/data"
	"github.com/gaia-dao/campaigns/src/CampApi/externalize"
)

// Deps are the chain-facing collaborators; any of them may be nil when the
// chain is not configured and the API degrades to primary-store behavior.
type Deps struct {
	Worker  *externalize.Worker
	Scanner ChainReader
	Chain   AttendanceMarker
}

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, rdb *redis.Client, deps Deps) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	store := data.NewCampaignStore(db)
	users := data.NewUserStore(db)

	authH := NewAuth(rdb, users, []byte(cfg.JWTSecret))
	usersH := NewUsers(users)
	campH := NewCampaigns(store, users, deps.Worker)
	viewsH := NewViews(store, deps.Scanner, rdb, cfg.MaxScanID)
	attendH := NewAttendance(store, users, deps.Chain)

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/challenge", authH.Challenge)
		v1.POST("/auth/verify", authH.Verify)

		secured := v1.Use(JWTMiddleware([]byte(cfg.JWTSecret)))
		secured.GET("/users/me", usersH.Me)
		secured.PUT("/users/me", usersH.UpdateMe)
		secured.POST("/users", usersH.Create)

		secured.POST("/campaigns", campH.Create)
		secured.GET("/campaigns", campH.List)
		secured.GET("/campaigns/:id", campH.Get)
		secured.POST("/campaigns/:id/approve", campH.Approve)
		secured.POST("/campaigns/:id/join", campH.Join)
		secured.POST("/campaigns/:id/participants", campH.AddParticipant)
		secured.POST("/campaigns/:id/cancel", campH.Cancel)
		secured.POST("/campaigns/:id/complete", campH.Complete)
		secured.GET("/campaigns/:id/externalization", campH.ExternalizationStatus)
		secured.POST("/campaigns/:id/attendance", attendH.Mark)

		secured.GET("/views/campaigns", viewsH.List)
		secured.GET("/views/campaigns/:id", viewsH.Campaign)
		secured.GET("/views/wallets/:address/campaigns", viewsH.Wallet)
	}
}
