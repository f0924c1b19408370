package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"eventbooking/internal/events"
	"eventbooking/internal/shared/config"
	"eventbooking/internal/shared/constants"
	"eventbooking/internal/shared/database"
	"eventbooking/pkg/cache"
	"eventbooking/pkg/logger"
)

type Seeder struct {
	db     *database.DB
	events events.Repository
	log    *logger.Logger
}

func main() {
	fmt.Println("🌱 Starting event database seeder...")

	_ = godotenv.Load()
	cfg := config.Load()
	if !cfg.UsesPostgres() {
		log.Fatalf("Seeding needs STORAGE_DRIVER=postgres, got %q", cfg.StorageDriver)
	}

	appLogger := logger.New()
	db, err := database.InitDB(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{
		db:     db,
		events: events.NewRepository(db.GetPostgreSQL()),
		log:    appLogger,
	}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(context.Background()); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")
}

// CleanDatabase truncates bookings and events
func (s *Seeder) CleanDatabase() error {
	return s.db.PostgreSQL.Exec("TRUNCATE TABLE bookings, events RESTART IDENTITY CASCADE").Error
}

// SeedAll seeds events and drops stale cached listings
func (s *Seeder) SeedAll(ctx context.Context) error {
	if err := s.SeedEvents(ctx); err != nil {
		return fmt.Errorf("failed to seed events: %w", err)
	}

	if s.db.Redis != nil {
		cacheService := cache.NewService(s.db.Redis, s.log)
		if err := cacheService.DeletePattern(ctx, constants.CACHE_PREFIX+":*"); err != nil {
			log.Printf("Warning: Failed to clear cached data: %v", err)
		}
	}

	return nil
}

// SeedEvents creates a spread of active events, including one small event
// that is handy for exercising sell-outs and one already cancelled.
func (s *Seeder) SeedEvents(ctx context.Context) error {
	organizerID := uuid.New()
	now := time.Now().UTC()

	eventsData := []struct {
		name     string
		location string
		category string
		startsIn time.Duration
		total    int
		price    float64
		status   events.Status
	}{
		{"Go Conference 2026", "Convention Center Hall A", "technology", 30 * 24 * time.Hour, 500, 149.00, events.StatusActive},
		{"Summer Jazz Evening", "Riverside Amphitheatre", "music", 14 * 24 * time.Hour, 1200, 45.50, events.StatusActive},
		{"City Marathon Expo", "Downtown Sports Arena", "sports", 45 * 24 * time.Hour, 3000, 0, events.StatusActive},
		{"Founders Breakfast", "Harbor Hotel Ballroom", "business", 7 * 24 * time.Hour, 80, 25.00, events.StatusActive},
		{"Sell-out Test Gig", "Basement Club", "music", 3 * 24 * time.Hour, 10, 10.00, events.StatusActive},
		{"Postponed Art Walk", "Old Town Galleries", "arts", 20 * 24 * time.Hour, 150, 12.00, events.StatusCancelled},
	}

	for _, data := range eventsData {
		event := &events.Event{
			ID:               uuid.New(),
			Name:             data.name,
			Description:      fmt.Sprintf("%s at %s", data.name, data.location),
			Location:         data.location,
			Category:         data.category,
			StartsAt:         now.Add(data.startsIn),
			OrganizerID:      organizerID,
			TotalTickets:     data.total,
			TicketsAvailable: data.total,
			TicketPrice:      data.price,
			Status:           data.status,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		if err := s.events.CreateEvent(ctx, event); err != nil {
			return fmt.Errorf("failed to create event %s: %w", data.name, err)
		}
		fmt.Printf("    ✅ Created event: %s (%d tickets, %s)\n", event.Name, event.TotalTickets, event.ID)
	}

	return nil
}
