package container

import (
	"log/slog"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/joshua-takyi/servicehub/internal/config"
	"github.com/joshua-takyi/servicehub/internal/events"
	"github.com/joshua-takyi/servicehub/internal/helpers"
	"github.com/joshua-takyi/servicehub/internal/middleware"
	"github.com/joshua-takyi/servicehub/internal/models"
	"github.com/joshua-takyi/servicehub/internal/realtime"
	"github.com/joshua-takyi/servicehub/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/supabase-community/supabase-go"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/time/rate"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	// Database clients
	SupabaseClient *supabase.Client
	MongoDBClient  *mongo.Client
	MongoRepo      *models.MongodbRepo

	TokenValidator  *helpers.TokenValidator
	UserService     *services.UserService
	MatchingService *services.MatchingService
	BookingService  *services.BookingService

	Hub         *realtime.Hub
	RedisBridge *realtime.RedisBridge
	Publisher   *events.Publisher

	BookingLimiter *middleware.IPRateLimiter
}

// Clients groups the optional infrastructure. Nil members disable the feature they back.
type Clients struct {
	Supabase   *supabase.Client
	MongoDB    *mongo.Client
	Redis      *redis.Client
	Cloudinary *cloudinary.Cloudinary
	Publisher  *events.Publisher
	Validator  *helpers.TokenValidator
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, logger *slog.Logger, clients Clients) *Container {
	// Initialize repositories
	supa := models.SupabaseNewRepo(clients.Supabase, cfg.SupabaseURL, cfg.SupabaseAnonKey)
	mongoRepo := models.MongodbNewRepo(clients.MongoDB, cfg.MongoDBDatabase)

	hub := realtime.NewHub(logger)
	var gateway services.NotificationGateway = hub
	var bridge *realtime.RedisBridge
	if clients.Redis != nil {
		bridge = realtime.NewRedisBridge(clients.Redis, hub, realtime.DefaultRedisChannel, logger)
		gateway = bridge
	}

	var publisher services.EventPublisher
	if clients.Publisher != nil {
		publisher = clients.Publisher
	}

	var uploader services.ImageUploader
	if clients.Cloudinary != nil {
		uploader = helpers.NewCloudinaryUploader(clients.Cloudinary, logger)
	}

	matcher := services.NewMatchingService(mongoRepo, mongoRepo, cfg.MatchMaxDistanceKm, logger)
	bookingService := services.NewBookingService(
		mongoRepo,
		mongoRepo,
		mongoRepo,
		mongoRepo,
		matcher,
		services.NewStatusMachine(),
		gateway,
		publisher,
		uploader,
		logger,
	)

	return &Container{
		Config:          cfg,
		Logger:          logger,
		SupabaseClient:  clients.Supabase,
		MongoDBClient:   clients.MongoDB,
		MongoRepo:       mongoRepo,
		TokenValidator:  clients.Validator,
		UserService:     services.NewUserService(supa),
		MatchingService: matcher,
		BookingService:  bookingService,
		Hub:             hub,
		RedisBridge:     bridge,
		Publisher:       clients.Publisher,
		BookingLimiter:  middleware.NewIPRateLimiter(rate.Limit(cfg.BookingRatePerMinute/60), cfg.BookingBurst),
	}
}
