package bootstrap

import (
	"database/sql"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	httpapi "github.com/pageforge-dev/pageforge-backend/internal/api/http"
	"github.com/pageforge-dev/pageforge-backend/internal/api/http/middleware"
	"github.com/pageforge-dev/pageforge-backend/internal/generation/admission"
	genhttp "github.com/pageforge-dev/pageforge-backend/internal/generation/http"
	genrepo "github.com/pageforge-dev/pageforge-backend/internal/generation/repository"
	genservice "github.com/pageforge-dev/pageforge-backend/internal/generation/service"
	wshttp "github.com/pageforge-dev/pageforge-backend/internal/workspace/http"
	wsrepo "github.com/pageforge-dev/pageforge-backend/internal/workspace/repository"
	wsservice "github.com/pageforge-dev/pageforge-backend/internal/workspace/service"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	APIKey      string

	DB    *sql.DB
	Pool  *pgxpool.Pool
	Redis *redis.Client

	Upstream  genservice.Upstream
	Admission *admission.Controller

	MaxRetries int
	RetryDelay time.Duration
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Pool, dep.Redis)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	api.Use(middleware.RequestIDMiddleware())
	api.Use(middleware.ThrottleMiddleware(rate.Limit(5), 10))
	api.Use(middleware.APIKeyMiddleware(dep.APIKey))

	store := genrepo.NewGenerationRepository(dep.DB)
	genSvc := genservice.NewGenerationService(dep.Admission, dep.Upstream, store, genservice.Config{
		MaxRetries: dep.MaxRetries,
		RetryDelay: dep.RetryDelay,
	})
	genhttp.New(genSvc).Register(api)

	sessions := wsrepo.NewSessionRepository(dep.Redis)
	wsSvc := wsservice.NewWorkspaceService(sessions, store)
	wshttp.New(wsSvc).Register(api)

	return r
}
