package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/sebsoto/mcp/internal/llm"
	"github.com/sebsoto/mcp/internal/orchestrator"
	"github.com/sebsoto/mcp/internal/sandbox"
	"github.com/sebsoto/mcp/internal/session"
	"github.com/sebsoto/mcp/internal/tools"
)

// main is the entry point for the application. Its primary role is the
// "Composition Root": it loads configuration, initializes all services,
// injects dependencies, and starts the server.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	buildInfo := GetBuildInfo()
	log.Printf("🚀 Starting MCP Gateway | Version: %s | Commit: %s", buildInfo.Version, buildInfo.GitCommit)

	// 1. LOAD CONFIGURATION
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("❌ FATAL: Configuration Error: %v", err)
	}
	log.Println("✅ Configuration loaded.")

	// 2. INITIALIZE SERVICES
	client, err := initializeBackendClient(cfg)
	if err != nil {
		log.Fatalf("❌ FATAL: %v", err)
	}

	registry, err := initializeToolRegistry(cfg)
	if err != nil {
		log.Fatalf("❌ FATAL: %v", err)
	}

	store, err := initializeStore(cfg)
	if err != nil {
		log.Fatalf("❌ FATAL: %v", err)
	}

	loop := orchestrator.NewLoop(client, registry, cfg.MaxToolIterations, cfg.BackendTimeout.Std(), cfg.SystemPrompt)
	manager := session.NewManager(loop, store, cfg.IdleTTL.Std())
	defer manager.Close()

	gatewayHandler := NewGatewayHandler(manager)
	log.Println("✅ All services initialized.")

	// 3. SETUP AND RUN THE WEB SERVER
	gin.SetMode(os.Getenv("GIN_MODE"))
	engine := gin.Default()
	gatewayHandler.RegisterRoutes(engine)

	srv := &http.Server{Addr: fmt.Sprintf(":%s", cfg.Port), Handler: engine}
	runServerWithGracefulShutdown(srv)
}

// initializeBackendClient creates the configured chat backend.
func initializeBackendClient(cfg *AppConfig) (llm.ChatClient, error) {
	switch cfg.Backend {
	case BackendGemini:
		client, err := llm.NewGeminiClient(cfg.GeminiAPIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		log.Printf("✅ Gemini backend initialized (model %s).", cfg.Model)
		return client, nil
	default:
		client, err := llm.NewOllamaClient(cfg.OllamaHost, cfg.Model, cfg.BackendTimeout.Std())
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		log.Printf("✅ Ollama backend initialized (%s, model %s).", cfg.OllamaHost, cfg.Model)
		return client, nil
	}
}

// initializeToolRegistry creates and registers all available tools. The file
// reader is guarded by the path sandbox; a bogus sandbox root fails startup.
func initializeToolRegistry(cfg *AppConfig) (*tools.Registry, error) {
	registry := tools.NewRegistry(cfg.ToolTimeout.Std())

	registry.Register(tools.NewCalculatorTool())

	policy, err := sandbox.NewPathPolicy("path", cfg.SandboxRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox policy: %w", err)
	}
	registry.RegisterGuarded(tools.NewFileReadTool(policy.Root()), policy)

	log.Printf("✅ Tool registry initialized with %d tools (sandbox root %s).", registry.Count(), policy.Root())
	return registry, nil
}

// initializeStore creates the transcript store selected in config.
func initializeStore(cfg *AppConfig) (session.Store, error) {
	if cfg.Store != StoreRedis {
		log.Println("✅ In-memory transcript store initialized.")
		return session.NewMemoryStore(), nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	log.Printf("✅ Redis transcript store initialized (%s).", cfg.RedisAddr)
	return session.NewRedisStore(rdb, cfg.IdleTTL.Std()), nil
}

// runServerWithGracefulShutdown handles the server lifecycle.
func runServerWithGracefulShutdown(srv *http.Server) {
	go func() {
		log.Printf("👂 Gateway is listening on http://localhost%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Listen error: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ Server shutdown failed:", err)
	}

	log.Println("👋 Server exited gracefully.")
}
