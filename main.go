package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Young6-101/ai-interview-assistant/internal/analysis"
	"github.com/Young6-101/ai-interview-assistant/internal/config"
	"github.com/Young6-101/ai-interview-assistant/internal/httpapi"
	"github.com/Young6-101/ai-interview-assistant/internal/hub"
	"github.com/Young6-101/ai-interview-assistant/internal/llm"
	"github.com/Young6-101/ai-interview-assistant/internal/realtime"
	"github.com/Young6-101/ai-interview-assistant/internal/session"
	"github.com/Young6-101/ai-interview-assistant/internal/storage"
	"github.com/Young6-101/ai-interview-assistant/internal/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting interview backend...")
	log.Printf("WebSocket Port: %d", cfg.WSPort)
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)

	// Initialize durable storage
	store, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Initialize hub and live session store
	connectionHub := hub.NewHub()
	sessions := session.NewStore()

	// Initialize analysis orchestrator
	llmClient := llm.NewLLMClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)
	analyzer := analysis.NewAnalyzer(llmClient, cfg.LLMModel)

	// One realtime proxy per active session; the stream is not restartable.
	newProxy := func() realtime.Service {
		return realtime.NewClient(cfg.RealtimeURL, cfg.RealtimeAPIKey)
	}

	// Initialize WebSocket gateway
	wsServer := ws.NewServer(cfg, connectionHub, sessions, analyzer, store, newProxy)

	// Create WebSocket Echo server
	wsEcho := echo.New()
	wsEcho.HideBanner = true
	wsEcho.HidePort = true
	wsEcho.Use(middleware.Logger())
	wsEcho.Use(middleware.Recover())
	wsEcho.GET("/ws", wsServer.HandleWebSocket)

	// Initialize REST API server
	apiServer := httpapi.NewServer(connectionHub, sessions, store)

	// Start WebSocket server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.WSPort)
		if err := wsEcho.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start WebSocket server: %v", err)
		}
	}()

	// Start REST API server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := apiServer.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	log.Printf("WebSocket server started on port %d", cfg.WSPort)
	log.Printf("REST API server started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := wsEcho.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown WebSocket server gracefully: %v", err)
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown HTTP server gracefully: %v", err)
	}

	log.Println("Interview backend stopped")
}
