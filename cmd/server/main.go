package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"carechat/backend/internal/config"
	"carechat/backend/internal/domain"
	"carechat/backend/internal/httpserver"
	"carechat/backend/internal/hub"
	"carechat/backend/internal/identity"
	"carechat/backend/internal/service"
	"carechat/backend/internal/store/postgres"
	"carechat/backend/internal/store/sqlite"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, repos, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	chatSvc := service.NewChatService(repos.conversations, repos.messages, repos.reactions, repos.users)

	var resolver identity.Resolver
	if cfg.VerifyHandshake {
		resolver = identity.NewVerifyingResolver(cfg.JWTSecret)
	} else {
		// Claims are read without signature verification; see
		// identity.ClaimPeekResolver before relying on this in production.
		resolver = identity.ClaimPeekResolver{}
	}

	h := hub.NewHub()
	go h.Run()

	gateway := hub.NewGateway(h, chatSvc, resolver, cfg.AllowAnonymous, cfg.HistoryLimit, cfg.CORSOrigins)
	router := httpserver.NewRouter(cfg, h, gateway)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting %s on %s (store: %s)", cfg.AppName, cfg.HTTPAddr(), cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	h.Stop()
}

type repositories struct {
	users         domain.UserRepository
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	reactions     domain.ReactionRepository
}

func openStore(cfg *config.Config) (*sql.DB, *repositories, error) {
	if cfg.DBDriver == "postgres" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, &repositories{
			users:         postgres.NewUserRepo(db),
			conversations: postgres.NewConversationRepo(db),
			messages:      postgres.NewMessageRepo(db),
			reactions:     postgres.NewReactionRepo(db),
		}, nil
	}

	db, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	if err := sqlite.Migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, &repositories{
		users:         sqlite.NewUserRepo(db),
		conversations: sqlite.NewConversationRepo(db),
		messages:      sqlite.NewMessageRepo(db),
		reactions:     sqlite.NewReactionRepo(db),
	}, nil
}
