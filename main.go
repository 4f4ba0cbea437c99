package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-michi/michi"
	"github.com/gorilla/handlers"
	"github.com/sirupsen/logrus"

	"tailorfinder/config"
	"tailorfinder/controllers"
	"tailorfinder/database"
	"tailorfinder/middleware"
	"tailorfinder/repository"
	"tailorfinder/services"
	"tailorfinder/session"
	"tailorfinder/storage"
	"tailorfinder/utils"
)

func main() {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatal(utils.ErrorWithTrace(err, "failed to load config"))
	}
	if err := setupLogger(cfg.Log); err != nil {
		logrus.Fatal(utils.ErrorWithTrace(err, "invalid log config"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the store and run migrations
	durable, err := database.Open(ctx, cfg.Storage)
	if err != nil {
		logrus.Fatal(utils.ErrorWithTrace(err, "failed to open storage"))
	}
	defer durable.Close()
	store := storage.NewInstrumentedStore(durable)

	ttl, err := cfg.SessionTTL()
	if err != nil {
		logrus.Fatal(utils.ErrorWithTrace(err, "invalid session ttl"))
	}
	sessions := session.NewManager(storage.NewMemoryStore(), []byte(cfg.Session.Secret), ttl)

	svc := services.New(repository.New(store, logrus.StandardLogger()), sessions, services.Options{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Logger:         logrus.StandardLogger(),
	})
	controllers.SetService(svc)
	controllers.SetStats(store)

	// Enable CORS
	corsOptions := handlers.CORS(
		handlers.AllowedOrigins(cfg.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", middleware.AdminTokenHeader}),
		handlers.ExposedHeaders([]string{"Content-Disposition"}),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handlers.LoggingHandler(logrus.StandardLogger().Writer(), corsOptions(newRouter(middleware.Auth(svc), middleware.AdminOnly(cfg.Admin.Token)))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.Errorf("failed to shut down server: %s", err)
		}
	}()

	if cfg.Admin.Token == "" {
		logrus.Warn("ADMIN_TOKEN not set, backup routes are disabled")
	}
	logrus.WithFields(logrus.Fields{"addr": cfg.Server.Addr, "storage": cfg.Storage.Driver}).Info("server running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Fatal(utils.ErrorWithTrace(err, "server stopped"))
	}
}

// newRouter wires every route; auth guards the owner-only ones and admin the
// backup and debug ones.
func newRouter(auth, admin func(http.Handler) http.Handler) *michi.Router {
	owner := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}
	maintenance := func(h http.HandlerFunc) http.Handler {
		return admin(h)
	}

	r := michi.NewRouter()
	r.HandleFunc("GET /owners", controllers.ListOwners)
	r.Route("/owners/", func(sub *michi.Router) {
		sub.HandleFunc("POST signup", controllers.Signup)
		sub.HandleFunc("POST login", controllers.Login)
		sub.Handle("POST logout", owner(controllers.Logout))
		sub.Handle("GET me", owner(controllers.Me))
		sub.Handle("DELETE me", owner(controllers.DeleteMe))
		sub.HandleFunc("GET {email}/designs", controllers.OwnerDesigns)
		sub.HandleFunc("GET {email}/rating", controllers.OwnerRating)
		sub.HandleFunc("POST {email}/ratings", controllers.RateOwner)
	})

	r.HandleFunc("POST /orders", controllers.PlaceOrder)
	r.Handle("GET /orders", owner(controllers.ListOrders))
	r.Handle("DELETE /orders", owner(controllers.ClearOrders))
	r.Route("/orders/", func(sub *michi.Router) {
		sub.Handle("PATCH {id}/status", owner(controllers.SetOrderStatus))
		sub.Handle("DELETE {id}", owner(controllers.DeleteOrder))
	})

	r.Handle("POST /designs", owner(controllers.UploadDesigns))
	r.Handle("GET /designs", owner(controllers.ListDesigns))
	r.Route("/designs/", func(sub *michi.Router) {
		sub.Handle("DELETE {id}", owner(controllers.DeleteDesign))
	})

	r.Route("/backup/", func(sub *michi.Router) {
		sub.Handle("POST restore", maintenance(controllers.RestoreBackup))
		sub.Handle("DELETE data", maintenance(controllers.ClearData))
	})
	r.Handle("GET /backup", maintenance(controllers.ExportBackup))
	r.Handle("GET /debug/storage", maintenance(controllers.StorageStats))
	return r
}

func setupLogger(cfg config.Log) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	switch cfg.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
