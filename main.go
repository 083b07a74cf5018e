package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"medilink/config"
	"medilink/database"
	"medilink/delivery"
	"medilink/handlers"
	"medilink/presence"
	"medilink/routes"
	"medilink/store"
	"medilink/websocket"
)

func main() {
	log.Println("🚀 Starting Medilink delivery layer...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("❌ Config error: ", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var (
		recordStore store.Store
		client      *mongo.Client
	)
	switch cfg.StoreDriver {
	case "memory":
		log.Println("⚙️ Using in-memory store (records do not survive restart)")
		recordStore = store.NewMemory()
	default:
		client = connectWithRetry(cfg.MongoURI)
		defer database.Disconnect(client)
		recordStore = store.NewMongo(client.Database(cfg.Database))
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := presence.NewRegistry(logger)
	router := delivery.NewRouter(registry, logger)
	gateway := websocket.NewGateway(recordStore, registry, router,
		cfg.JWTSecret, cfg.HeartbeatWindow, cfg.WriteTimeout, logger)

	h := handlers.New(recordStore, router, registry, logger)
	engine := routes.SetupRouter(h, cfg.JWTSecret, cfg.CORSOrigins)

	engine.GET("/ws", gin.WrapF(gateway.Handler()))
	log.Println("✅ WebSocket endpoint: /ws")

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Server error: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("❌ Forced shutdown: ", err)
	}

	log.Println("👋 Server stopped gracefully")
}

func connectWithRetry(uri string) *mongo.Client {
	var lastErr error
	for i := 1; i <= 3; i++ {
		client, err := database.Connect(context.Background(), uri)
		if err == nil {
			return client
		}
		lastErr = err
		log.Printf("❌ MongoDB connection attempt %d failed: %v", i, err)
		time.Sleep(2 * time.Second)
	}
	log.Fatal("❌ Failed to connect to MongoDB: ", lastErr)
	return nil
}
