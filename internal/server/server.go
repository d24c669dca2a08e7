package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/wayfarer-app/wayfarer/internal/archive"
	"github.com/wayfarer-app/wayfarer/internal/geo"
	"github.com/wayfarer-app/wayfarer/internal/handler"
	"github.com/wayfarer-app/wayfarer/internal/middleware"
	"github.com/wayfarer-app/wayfarer/internal/push"
	"github.com/wayfarer-app/wayfarer/internal/rate"
	"github.com/wayfarer-app/wayfarer/internal/remote"
	"github.com/wayfarer-app/wayfarer/internal/store"
	appsync "github.com/wayfarer-app/wayfarer/internal/sync"
	"github.com/wayfarer-app/wayfarer/internal/trip"
	"github.com/wayfarer-app/wayfarer/internal/weather"
	ws "github.com/wayfarer-app/wayfarer/internal/websocket"
)

// Config holds server construction options.
type Config struct {
	Archive      archive.Config
	Push         push.Config
	HomeCurrency string
}

type Server struct {
	db  *sql.DB
	hub *ws.Hub

	planner *trip.Planner
	session *appsync.Session

	tripH     *handler.TripHandler
	expenseH  *handler.ExpenseHandler
	shoppingH *handler.ShoppingHandler
	syncH     *handler.SyncHandler
	lookupH   *handler.LookupHandler
	pushH     *handler.PushHandler
	archiveH  *handler.ArchiveHandler

	settingsStore *store.SettingsStore
	rateLimiter   *middleware.RateLimiter

	archiveManager *archive.Manager
	pushService    *push.Service
	pushScheduler  *push.Scheduler

	logger *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	tripStore := store.NewTripStore(db)
	settingsStore := store.NewSettingsStore(db)
	pushStore := store.NewPushStore(db)
	archiveStore := store.NewArchiveStore(db)

	planner := trip.NewPlanner(tripStore, logger.With("component", "planner"))

	// Every committed change fans out to LAN devices over the hub,
	// regardless of whether it originated locally or from the remote store.
	planner.OnChange(func(section string, origin trip.Origin) {
		hub.Broadcast(ws.NewMessage("trip", "updated", planner.CurrentID(), map[string]any{
			"section": section,
			"origin":  origin.String(),
		}))
	})

	remoteLogger := logger.With("component", "remote")
	session := appsync.NewSession(planner, func(rc remote.Config) remote.Store {
		return remote.NewClient(rc, remoteLogger)
	}, appsync.DefaultDebounce, logger.With("component", "sync"))

	session.OnStatusChange(func(status appsync.Status) {
		hub.Broadcast(ws.Message{
			Type:   "sync_status",
			Entity: "sync",
			Action: string(status),
		})
	})

	archiveMgr := archive.NewManager(cfg.Archive, db, archiveStore, settingsStore, func(s archive.Status) {
		hub.Broadcast(ws.Message{
			Type:   "archive_status",
			Entity: "archive",
			Action: string(s.State),
			Extra: map[string]any{
				"inProgress": s.InProgress,
				"error":      s.Error,
			},
		})
	})

	geoSvc := geo.NewService(logger.With("component", "geo"))
	weatherSvc := weather.NewService()
	rateSvc := rate.NewService(cfg.HomeCurrency)

	var pushSvc *push.Service
	var pushSched *push.Scheduler
	var pushH *handler.PushHandler
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey)
		pushSched = push.NewScheduler(pushSvc, pushStore, planner)
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
	}

	return &Server{
		db:             db,
		hub:            hub,
		planner:        planner,
		session:        session,
		tripH:          handler.NewTripHandler(planner, logger.With("component", "trip")),
		expenseH:       handler.NewExpenseHandler(planner, logger.With("component", "expense")),
		shoppingH:      handler.NewShoppingHandler(planner, logger.With("component", "shopping")),
		syncH:          handler.NewSyncHandler(session, planner, settingsStore, logger.With("component", "sync_handler")),
		lookupH:        handler.NewLookupHandler(geoSvc, weatherSvc, rateSvc, planner, logger.With("component", "lookup")),
		pushH:          pushH,
		archiveH:       handler.NewArchiveHandler(archiveMgr, archiveStore, settingsStore, logger.With("component", "archive_handler")),
		settingsStore:  settingsStore,
		rateLimiter:    middleware.NewRateLimiter(),
		archiveManager: archiveMgr,
		pushService:    pushSvc,
		pushScheduler:  pushSched,
		logger:         logger,
	}
}

// Planner returns the trip planner.
func (s *Server) Planner() *trip.Planner {
	return s.planner
}

// Session returns the sync session for lifecycle control.
func (s *Server) Session() *appsync.Session {
	return s.session
}

// SettingsStore returns the settings store.
func (s *Server) SettingsStore() *store.SettingsStore {
	return s.settingsStore
}

// ArchiveManager returns the archive manager.
func (s *Server) ArchiveManager() *archive.Manager {
	return s.archiveManager
}

// PushScheduler returns the flight reminder scheduler, nil when push is not
// configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	// Trip index and current state
	mux.HandleFunc("GET /api/trips", s.tripH.List)
	mux.HandleFunc("POST /api/trips", s.tripH.Create)
	mux.HandleFunc("GET /api/trips/current", s.tripH.Current)
	mux.HandleFunc("POST /api/trips/{id}/switch", s.tripH.Switch)
	mux.HandleFunc("DELETE /api/trips/{id}", s.tripH.Delete)

	// Itinerary
	mux.HandleFunc("POST /api/days", s.tripH.AddDay)
	mux.HandleFunc("PATCH /api/days/{day}", s.tripH.UpdateDay)
	mux.HandleFunc("POST /api/days/{day}/items", s.tripH.AddItem)
	mux.HandleFunc("PUT /api/days/{day}/items/{item}", s.tripH.UpdateItem)
	mux.HandleFunc("DELETE /api/days/{day}/items/{item}", s.tripH.RemoveItem)
	mux.HandleFunc("PUT /api/days/{day}/flight", s.tripH.SetFlight)

	// Trip settings
	mux.HandleFunc("PUT /api/participants", s.tripH.SetParticipants)
	mux.HandleFunc("PUT /api/rate", s.tripH.SetRate)
	mux.HandleFunc("PUT /api/setup", s.tripH.SetSetup)

	// Expenses
	mux.HandleFunc("POST /api/expenses", s.expenseH.Add)
	mux.HandleFunc("DELETE /api/expenses/{idx}", s.expenseH.Remove)
	mux.HandleFunc("POST /api/expenses/{idx}/toggle", s.expenseH.ToggleSettled)
	mux.HandleFunc("GET /api/expenses/summary", s.expenseH.Summary)

	// Shopping checklist
	mux.HandleFunc("POST /api/shopping", s.shoppingH.Add)
	mux.HandleFunc("POST /api/shopping/{id}/toggle", s.shoppingH.Toggle)
	mux.HandleFunc("DELETE /api/shopping/{id}", s.shoppingH.Remove)
	mux.HandleFunc("POST /api/shopping/categories", s.shoppingH.AddCategory)

	// Device sync
	mux.HandleFunc("GET /api/sync/status", s.syncH.Status)
	mux.HandleFunc("POST /api/sync/connect", s.syncH.Connect)
	mux.HandleFunc("POST /api/sync/disconnect", s.syncH.Disconnect)
	mux.HandleFunc("POST /api/sync/join", s.syncH.Join)
	mux.HandleFunc("GET /api/sync/share", s.syncH.Share)

	// External lookups, rate limited to respect upstream API policies
	mux.HandleFunc("GET /api/lookup/geo", s.rateLimitedLookup(s.lookupH.GeoSearch))
	mux.HandleFunc("GET /api/lookup/nearby", s.rateLimitedLookup(s.lookupH.GeoNearby))
	mux.HandleFunc("GET /api/lookup/weather", s.lookupH.Weather)
	mux.HandleFunc("GET /api/lookup/rate", s.lookupH.Rate)
	mux.HandleFunc("GET /api/lookup/country", s.lookupH.CountryInfo)

	// Archives
	mux.HandleFunc("GET /api/archives", s.archiveH.List)
	mux.HandleFunc("GET /api/archives/status", s.archiveH.Status)
	mux.HandleFunc("POST /api/archives/run", s.archiveH.Run)
	mux.HandleFunc("POST /api/archives/{id}/restore", s.archiveH.Restore)
	mux.HandleFunc("GET /api/archives/{id}/download", s.archiveH.Download)
	mux.HandleFunc("PUT /api/archives/settings", s.archiveH.UpdateSettings)

	// Push notifications
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	}

	// App shell and shared-trip deep links
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
	mux.HandleFunc("GET /", s.indexHandler)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// indexHandler serves the app shell. A ?tripId= deep link joins the shared
// trip once and then redirects to the bare path so a reload or bookmark
// does not re-trigger the join.
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if tripID := r.URL.Query().Get("tripId"); tripID != "" {
		if err := s.session.Join(r.Context(), tripID); err != nil {
			s.logger.Warn("deep link join failed", "trip", tripID, "error", err)
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	http.ServeFile(w, r, "web/static/index.html")
}

func (s *Server) rateLimitedLookup(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 30, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
