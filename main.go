package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/TruwixTech/Truwix-RM-Rental-Backend/gateway"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/models"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/notify"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/pricing"
	"github.com/TruwixTech/Truwix-RM-Rental-Backend/routes"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	log.Println("✅ Starting application...")

	// Load environment variables
	_ = godotenv.Load()

	// Init DB
	db := initDatabase()

	// Auto-migrate all tables
	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.RentalRate{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.OrderCounter{},
		&models.OutboxEvent{},
		&models.Wishlist{},
		&models.WishlistItem{},
	); err != nil {
		log.Fatalf("❌ AutoMigrate failed: %v", err)
	}

	// Payment gateway client
	gw, err := gateway.NewClientFromEnv()
	if err != nil {
		log.Fatalf("❌ Gateway config: %v", err)
	}

	// Distance client for shipping quotes
	dc := pricing.NewMatrixClient()

	// Gin setup
	r := gin.Default()

	// CORS settings
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-KEY", "X-VERIFY"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Setup routes
	routes.SetupRoutes(r, db, gw, dc)

	// Deliver queued notifications in the background
	go startOutboxDrain(db, 30*time.Second)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("🚀 Server running on port %s...", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// initDatabase sets up the GORM DB connection
func initDatabase() *gorm.DB {
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
		if err != nil {
			log.Fatalf("❌ DB connection failed: %v", err)
		}
		return db
	}

	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, user, password, dbname, port,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("❌ Failed to connect DB: %v", err)
	}
	return db
}

// startOutboxDrain periodically delivers pending outbox notifications.
// Failed deliveries stay queued and are retried on the next tick.
func startOutboxDrain(db *gorm.DB, interval time.Duration) {
	n := notify.LogNotifier{}
	for {
		time.Sleep(interval)
		sent, err := notify.Drain(db, n)
		if err != nil {
			log.Printf("❌ Outbox drain failed: %v", err)
			continue
		}
		if sent > 0 {
			log.Printf("✅ Delivered %d queued notifications", sent)
		}
	}
}
