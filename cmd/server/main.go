package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/codewiithcherry/ASHAAIBOT/internal/api"
	"github.com/codewiithcherry/ASHAAIBOT/internal/config"
	"github.com/codewiithcherry/ASHAAIBOT/internal/core"
	"github.com/codewiithcherry/ASHAAIBOT/internal/jobs"
	"github.com/codewiithcherry/ASHAAIBOT/internal/llm"
	"github.com/codewiithcherry/ASHAAIBOT/internal/rag"
	"github.com/codewiithcherry/ASHAAIBOT/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.AppConfig

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Command line flag for knowledge ingestion
	ingestFile := flag.String("ingest", "", "Ingest knowledge documents from the given JSON file and exit")
	flag.Parse()

	// Initialize knowledge index
	index, err := store.NewKnowledgeIndex(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize knowledge index: %v", err)
	}
	defer index.Close()

	// Initialize embedding backend
	var embedder *llm.GeminiEmbedder
	if cfg.GeminiAPIKey != "" {
		embedder, err = llm.NewGeminiEmbedder(context.Background(), cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("Failed to initialize embedder: %v", err)
		}
		defer embedder.Close()
	} else {
		log.Println("Warning: GEMINI_API_KEY is not set, knowledge retrieval is disabled")
	}

	// Handle knowledge ingestion if flag is set
	if *ingestFile != "" {
		if embedder == nil {
			log.Fatal("Knowledge ingestion requires GEMINI_API_KEY")
		}
		log.Println("Starting knowledge ingestion process...")
		numIngested, err := index.IngestFromFile(context.Background(), *ingestFile, embedder.Embed)
		if err != nil {
			log.Fatalf("Knowledge ingestion failed: %v", err)
		}
		log.Printf("Knowledge ingestion complete. Ingested %d documents. Exiting.", numIngested)
		return
	}

	// Initialize knowledge retriever
	var retriever *rag.Retriever
	if embedder != nil {
		retriever, err = rag.NewRetriever(index, embedder)
		if err != nil {
			log.Fatalf("Failed to initialize retriever: %v", err)
		}
	}

	// Initialize flat-file stores
	conversations := store.NewFileConversationStore(filepath.Join(cfg.DataDir, "conversation_memory.json"), cfg.MaxHistory)
	users := store.NewFileUserStore(filepath.Join(cfg.DataDir, "users.json"))
	sessions := store.NewFileSessionStore(filepath.Join(cfg.DataDir, "sessions.json"))

	// Initialize completion client and services
	completionClient := llm.NewClient(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
	chatService := core.NewChatService(conversations, retriever, completionClient)
	jobsClient := jobs.NewClient(cfg.AdzunaAppID, cfg.AdzunaAppKey)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(chatService, users, sessions, jobsClient)
	router := api.NewRouter(apiHandler, cfg.FrontendOrigin)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // Completion calls can take up to ~90s worst case with retries
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
