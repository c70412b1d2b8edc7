package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NTDKhoa04/bloggin-be/collab"
	"github.com/NTDKhoa04/bloggin-be/handlers/api/collaborators"
	"github.com/NTDKhoa04/bloggin-be/handlers/api/drafts"
	"github.com/NTDKhoa04/bloggin-be/handlers/auth"
	"github.com/NTDKhoa04/bloggin-be/handlers/websocket"
	authMiddleware "github.com/NTDKhoa04/bloggin-be/middleware"
	"github.com/NTDKhoa04/bloggin-be/stores"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

func setupRouter(store stores.Store, roles *stores.RoleService) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Token", "session", "Origin", "Host", "Connection", "Accept-Encoding", "Accept-Language", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.AuthJWT)
			r.Route("/drafts", func(r chi.Router) {
				r.Post("/", drafts.HandleCreateDraft(store))
				r.Get("/", drafts.HandleListDrafts(store))
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", drafts.HandleGetDraft(store, roles))
					r.Put("/", drafts.HandleUpdateDraft(store, roles))
					r.Delete("/", drafts.HandleDeleteDraft(store, roles))
					r.Get("/content", drafts.HandleGetContent(store, roles))
					r.Put("/content", drafts.HandleSaveContent(store, roles))
					r.Route("/collaborators", func(r chi.Router) {
						r.Get("/", collaborators.HandleListCollaborators(store, roles))
						r.Post("/", collaborators.HandleAddCollaborator(store, roles))
						r.Route("/{userId}", func(r chi.Router) {
							r.Put("/", collaborators.HandleUpdateCollaborator(store, roles))
							r.Delete("/", collaborators.HandleRemoveCollaborator(store, roles))
						})
					})
				})
			})
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", auth.HandleLogin)
		r.Get("/callback", auth.HandleCallback)
	})

	return r
}

func saveDelay() time.Duration {
	raw := os.Getenv("COLLAB_SAVE_DELAY")
	if raw == "" {
		return collab.DefaultSaveDelay
	}
	delay, err := time.ParseDuration(raw)
	if err != nil || delay <= 0 {
		logrus.WithField("value", raw).Warn("Invalid COLLAB_SAVE_DELAY, using default")
		return collab.DefaultSaveDelay
	}
	return delay
}

func waitForShutdown(ioo *socketio.Server, hub *collab.Hub) {
	exit := make(chan struct{})
	SignalC := make(chan os.Signal, 1)

	signal.Notify(SignalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range SignalC {
			switch s {
			case os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	logrus.Info("Shutting down...")
	ioo.Close(nil)
	hub.Flush()
	os.Exit(0)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", ":3002", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	auth.InitAuth()
	store := stores.GetStore()
	roles := stores.NewRoleService(store)

	hub := collab.NewHub(collab.Config{
		Roles:     roles,
		Snapshots: store,
		SaveDelay: saveDelay(),
	})

	r := setupRouter(store, roles)

	ioo := websocket.SetupSocketIO(hub)
	r.Mount("/socket.io/", ioo.ServeHandler(nil))

	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := http.ListenAndServe(*listenAddress, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(ioo, hub)
}
