// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/config"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/database"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/handlers"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/middleware"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/notifier"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/routes"
	"github.com/SKrock-1/Geo-Based-Asset-Tracking-System/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	config.LoadConfig()

	if err := database.Connect(); err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer database.Disconnect()

	bus := notifier.New()
	defer bus.Close()

	assetStore := store.NewMongo(database.DB(), bus)
	if err := assetStore.EnsureIndexes(context.Background()); err != nil {
		log.Fatalf("Index creation failed: %v", err)
	}

	router := mux.NewRouter()
	routes.RegisterRoutes(router, routes.Deps{
		Assets:    handlers.NewAssetHandler(assetStore),
		Analytics: handlers.NewAnalyticsHandler(assetStore),
		Auth:      handlers.NewAuthHandler(database.DB().Collection("users")),
		WS:        handlers.NewWSHandler(bus),
	})

	handler := middleware.Logging(middleware.Recovery(middleware.CORS(router)))

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server listening on port %s", config.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
