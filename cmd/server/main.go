package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledger/internal/auth"
	"ledger/internal/config"
	"ledger/internal/db"
	"ledger/internal/filestore"
	"ledger/internal/handlers"
	"ledger/internal/money"
	"ledger/internal/services"
	"ledger/internal/store"
	"ledger/internal/websocket"
)

type storage struct {
	accounts     services.AccountStore
	transactions services.TransactionLog
	audit        handlers.AuditStore
	close        func() error
}

func openStorage(cfg config.Config) (storage, error) {
	if cfg.StorageDriver == config.StoragePostgres {
		database, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			return storage{}, err
		}
		log.Printf("storage: postgres")
		return storage{
			accounts:     store.NewAccountStore(database, db.NewTxRunner(database)),
			transactions: store.NewTransactionStore(database),
			audit:        store.NewAuditStore(database),
			close:        database.Close,
		}, nil
	}
	files, err := filestore.Open(cfg.DataDir)
	if err != nil {
		return storage{}, err
	}
	log.Printf("storage: files in %s", files.Dir())
	return storage{
		accounts:     files.Accounts(),
		transactions: files.Transactions(),
		audit:        files.Audit(),
		close:        files.Close,
	}, nil
}

// openRevoker falls back to tokens that stay valid until expiry when Redis is
// not configured or not reachable.
func openRevoker(ctx context.Context, cfg config.Config) (auth.Revoker, func() error) {
	if cfg.RedisAddr == "" {
		log.Printf("auth: REDIS_ADDR not set, logout will not revoke tokens")
		return auth.NoopRevoker{}, func() error { return nil }
	}
	client, err := db.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Printf("auth: redis unavailable at %s, logout will not revoke tokens: %v", cfg.RedisAddr, err)
		return auth.NoopRevoker{}, func() error { return nil }
	}
	return auth.NewRedisRevoker(client), client.Close
}

func main() {
	cfg := config.Load()
	registrationBalance, err := money.Parse(cfg.RegistrationBalance)
	if err != nil {
		log.Fatalf("invalid REGISTRATION_BALANCE %q: %v", cfg.RegistrationBalance, err)
	}
	adminBalance, err := money.Parse(cfg.AdminBalance)
	if err != nil {
		log.Fatalf("invalid ADMIN_INITIAL_BALANCE %q: %v", cfg.AdminBalance, err)
	}

	backend, err := openStorage(cfg)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer func() {
		if err := backend.close(); err != nil {
			log.Printf("close storage: %v", err)
		}
	}()

	revoker, closeRevoker := openRevoker(context.Background(), cfg)
	defer closeRevoker()

	hub := websocket.NewHub()
	service := services.NewLedgerService(backend.accounts, backend.transactions, hub, registrationBalance)

	adminHash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		log.Fatalf("failed to hash admin password: %v", err)
	}
	admin, created, err := service.EnsureAdmin(context.Background(), adminHash, adminBalance)
	if err != nil {
		log.Fatalf("failed to ensure admin account: %v", err)
	}
	if created {
		log.Printf("created %s account (id %d) with balance %s", admin.Username, admin.ID, money.Format(admin.Balance))
	}

	handler := handlers.New(cfg, service, backend.audit, revoker, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("ledger API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
