// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eventbooking/internal/bookings"
	"eventbooking/internal/events"
	"eventbooking/internal/notifications"
	"eventbooking/internal/shared/config"
	"eventbooking/internal/shared/database"
	"eventbooking/pkg/cache"
	"eventbooking/pkg/logger"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	log       *logger.Logger
	publisher notifications.Publisher
	cache     cache.Service

	store *events.Store
}

// NewRouter creates a new router instance. A nil publisher disables booking
// event publication.
func NewRouter(cfg *config.Config, db *database.DB, publisher notifications.Publisher, log *logger.Logger) *Router {
	r := &Router{
		config:    cfg,
		db:        db,
		log:       log,
		publisher: publisher,
	}
	if cfg.Cache.Enabled && db.Redis != nil {
		r.cache = cache.NewService(db.Redis, log)
	}
	return r
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		// Event store must exist before bookings are wired to it
		r.setupEventRoutes(api)
		r.setupBookingRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "eventbooking",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":         "healthy",
			"timestamp":      time.Now(),
			"service":        "eventbooking",
			"storage_driver": r.config.StorageDriver,
			"lock_backend":   r.lockBackend(),
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})
}

// setupEventRoutes configures event management routes
func (r *Router) setupEventRoutes(rg *gin.RouterGroup) {
	var eventRepo events.Repository
	if r.config.UsesPostgres() {
		eventRepo = events.NewRepository(r.db.GetPostgreSQL())
	} else {
		eventRepo = events.NewMemoryRepository()
	}

	r.store = events.NewStore(eventRepo, r.newLocker(), r.log)
	if r.cache != nil {
		r.store.SetCacheService(r.cache)
	}

	events.SetupEventRoutes(rg, events.NewController(r.store))
}

// setupBookingRoutes configures booking routes on top of the event store
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	var bookingRepo bookings.Repository
	if r.config.UsesPostgres() {
		bookingRepo = bookings.NewRepository(r.db.GetPostgreSQL())
	} else {
		bookingRepo = bookings.NewMemoryRepository()
	}

	bookingService := bookings.NewService(bookingRepo, r.store, r.publisher, r.log)
	if r.cache != nil {
		bookingService.SetCacheService(r.cache)
	}

	bookings.SetupBookingRoutes(rg, bookings.NewController(bookingService))
}

// newLocker picks the per-event lock. The Redis lock only works when Redis is
// connected; otherwise the in-process lock is used.
func (r *Router) newLocker() events.Locker {
	booking := r.config.Booking
	if r.lockBackend() == config.LockBackendRedis {
		return events.NewRedisLocker(r.db.Redis, booking.LockTTL, booking.LockWaitTimeout, r.log)
	}
	return events.NewLocalLocker(booking.LockWaitTimeout)
}

func (r *Router) lockBackend() string {
	if r.config.Booking.LockBackend == config.LockBackendRedis && r.db.Redis != nil {
		return config.LockBackendRedis
	}
	return config.LockBackendLocal
}
