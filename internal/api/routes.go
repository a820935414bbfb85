package api

import (
	"agrosynchro-engine/internal/api/handlers"
	"agrosynchro-engine/internal/api/middleware"
	"agrosynchro-engine/internal/config"
)

// EngineDeps are the handlers mounted on the processing-engine API.
type EngineDeps struct {
	Health *handlers.HealthHandler
	Worker *handlers.WorkerHandler
}

// NewEngineServer builds the engine's control API: health plus worker
// lifecycle endpoints.
func NewEngineServer(cfg *config.Config, deps EngineDeps) *Server {
	s := newServer(cfg)

	s.router.GET("/ping", deps.Health.Ping)
	s.router.GET("/health", deps.Health.Health)

	workers := s.router.Group("/worker")
	{
		workers.GET("/status", deps.Worker.Status)
		workers.POST("/:name/start", deps.Worker.Start)
		workers.POST("/:name/stop", deps.Worker.Stop)
	}

	return s
}

// GatewayDeps are the handlers mounted on the ingestion gateway API.
type GatewayDeps struct {
	Health     *handlers.HealthHandler
	Sensors    *handlers.SensorHandler
	Images     *handlers.ImageHandler
	Users      *handlers.UserHandler
	Parameters *handlers.ParameterHandler
	Auth       middleware.SubjectResolver
}

// NewGatewayServer builds the gateway API. Device-facing ingestion endpoints
// are open; per-user data access requires a verified bearer token.
func NewGatewayServer(cfg *config.Config, deps GatewayDeps) *Server {
	s := newServer(cfg)

	s.router.GET("/ping", deps.Health.Ping)
	s.router.GET("/health", deps.Health.Health)

	api := s.router.Group("/api")
	{
		api.POST("/sensors/data", deps.Sensors.Ingest)
		api.POST("/images/upload", deps.Images.Upload)
		api.POST("/users", deps.Users.Register)
	}

	auth := s.router.Group("/api")
	auth.Use(middleware.RequireAuth(cfg.JWTSecret, deps.Auth))
	{
		auth.GET("/users/me", deps.Users.Profile)
		auth.GET("/sensor-data", deps.Sensors.History)
		auth.GET("/images", deps.Images.List)
		auth.GET("/parameters", deps.Parameters.Get)
		auth.POST("/parameters", deps.Parameters.Upsert)
	}

	return s
}
