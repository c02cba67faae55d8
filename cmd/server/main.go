package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/lobic/lobic/pkg/database"
	"github.com/lobic/lobic/pkg/server"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"
)

func main() {
	// Configure logger with microsecond precision
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	// Command line flags
	configPath := flag.String("config", "~/.lobic/config.toml", "Path to config file")
	port := flag.Int("port", 0, "HTTP port to listen on (overrides config)")
	dbPath := flag.String("db", "", "Path to SQLite database (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	version := flag.Bool("version", false, "Show version information")
	seedUser := flag.String("seed-user", "", "Create a user id before starting (for local testing)")
	flag.Parse()

	if *version {
		fmt.Printf("Lobic Server %s\n", Version)
		os.Exit(0)
	}

	// Load configuration (creates default if not found)
	config, err := server.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Command-line flags override config file
	if *port != 0 {
		config.Server.HTTPPort = *port
	}
	if *dbPath != "" {
		config.Server.DatabasePath = *dbPath
	}

	finalDBPath, err := config.GetDatabasePath()
	if err != nil {
		log.Fatalf("Failed to resolve database path: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(finalDBPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := database.Open(finalDBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	if *seedUser != "" {
		u := database.User{
			ID:       *seedUser,
			Username: *seedUser,
			Email:    *seedUser + "@localhost",
			PwdHash:  "",
		}
		if err := db.CreateUser(u); err != nil {
			log.Printf("Warning: failed to seed user %s: %v", *seedUser, err)
		} else {
			log.Printf("Seeded user %s", *seedUser)
		}
	}

	srv := server.NewServer(db, config.ToServerConfig())
	srv.SetMetrics(server.NewMetrics())

	if *debug {
		srv.EnableDebugLogging()
		log.Printf("Debug logging enabled")
	}

	log.Printf("Config: %s", *configPath)
	log.Printf("Database: %s", finalDBPath)

	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	userCount, err := db.CountUsers()
	if err != nil {
		log.Printf("Warning: failed to count users: %v", err)
	} else {
		log.Printf("Registered users: %d", userCount)
	}

	log.Printf("Lobic server %s started successfully", Version)
	log.Printf("WebSocket endpoint: ws://localhost:%d/ws", config.Server.HTTPPort)
	log.Printf("Metrics endpoint: http://localhost:%d/metrics", config.Server.HTTPPort)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down server...")
	if err := srv.Stop(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server stopped")
}
