package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"giveaway/internal/handlers"
	"giveaway/internal/services"
	"giveaway/internal/storage"

	"github.com/Netflix/go-env"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/joho/godotenv"
)

// Config is read from the environment, with .env support for local runs.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR,default=:8080"`
	DataDir    string `env:"DATA_DIR,default=./data"`
	// StoreBackend selects "badger" (durable) or "memory" (ephemeral).
	StoreBackend string `env:"STORE_BACKEND,default=badger"`
	Verbose      bool   `env:"VERBOSE,default=false"`
}

func main() {
	// 1. Load configuration
	_ = godotenv.Load()
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	defer logger.Init("giveaway", cfg.Verbose, false, io.Discard).Close()

	// 2. Open the store
	var store storage.Store
	switch cfg.StoreBackend {
	case "memory":
		store = storage.NewMemoryStore()
		logger.Info("using in-memory store; state is lost on restart")
	default:
		db, err := storage.OpenBadger(cfg.DataDir)
		if err != nil {
			logger.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()
		store = storage.NewBadgerStore(db)
	}

	// 3. Initialize the services
	draws := services.NewDrawService(store)
	registrar := services.NewRegistrationService(store)
	winners := services.NewWinnerService(store)
	referrals := services.NewReferralService(store)
	leaderboard := services.NewLeaderboardService(store)

	// 4. Initialize the HTTP handler. The static resolver stands in for
	// the messaging platform's user directory.
	httpHandler := handlers.NewHTTPHandler(draws, registrar, winners, referrals, leaderboard, handlers.StaticNameResolver{})

	// 5. Set up the Gin router and register routes
	r := gin.Default()
	httpHandler.RegisterRoutes(r)

	// 6. Run the server, draining in-flight requests on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	go func() {
		logger.Infof("Server starting on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to run server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Shutdown error: %v", err)
	}
}
