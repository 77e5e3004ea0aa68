package router

import (
	"context"
	"errors"
	"net/http"

	_ "medipal/docs"
	"medipal/internal/adapters/auth/session"
	"medipal/internal/adapters/notifier/local"
	"medipal/internal/adapters/notifier/realtime"
	"medipal/internal/adapters/storage/kvrepo"
	mem "medipal/internal/adapters/storage/memory"
	"medipal/internal/domain/accounts"
	"medipal/internal/domain/doses"
	"medipal/internal/domain/medications"
	"medipal/internal/domain/preferences"
	"medipal/internal/middleware"
	"medipal/internal/platform/logger"
	"medipal/internal/platform/metrics"
	"medipal/internal/ports/kv"
	"medipal/internal/ports/notifier"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	Tokens *session.Tokens // requerido

	// Opcionales: sin Store se usa in-memory; sin Scheduler uno local nuevo.
	Store     kv.Store
	Scheduler *local.Scheduler
	Logger    logger.Logger
	Metrics   *metrics.Metrics

	// Canales de entrega extra (push gateway). El hub websocket siempre se agrega.
	Publishers []notifier.Publisher

	// 0 = sin límite en /auth.
	AuthRatePerMin int
}

// App es el handler HTTP más los componentes que main necesita arrancar y cerrar.
type App struct {
	http.Handler

	Scheduler *local.Scheduler
	Hub       *realtime.Hub

	reminders   *medications.Reminders
	medications *medications.Service
	accounts    *accounts.Service
	log         logger.Logger
}

func New(opts Options) (*App, error) {
	if opts.Tokens == nil {
		return nil, errors.New("router: session tokens required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	store := opts.Store
	if store == nil {
		store = mem.NewKV()
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = local.New(local.Options{Logger: log, Metrics: m})
	}

	// Repos sobre el KV
	medRepo := kvrepo.NewMedicationsRepo(store)
	userRepo := kvrepo.NewUsersRepo(store)
	prefRepo := kvrepo.NewPreferencesRepo(store)

	// Services por módulo
	reminders := medications.NewReminders(medRepo, sched, log, m)
	medsSvc := medications.NewService(medRepo, reminders, log)
	responder := doses.NewResponder(medRepo, sched, log, m)
	accountsSvc := accounts.NewService(userRepo, log)
	prefsSvc := preferences.NewService(prefRepo, log)

	hub := realtime.NewHub(func(ctx context.Context, instanceID, actionID string) error {
		_, err := doses.RespondTo(ctx, responder, sched, instanceID, actionID)
		return err
	}, log)
	sched.AddPublisher(hub)
	for _, p := range opts.Publishers {
		sched.AddPublisher(p)
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(m))

	r.Use(middleware.AuthContext(opts.Tokens))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// El token viaja como ?token= en el handshake.
	r.With(middleware.RequireSession).Get("/ws/notifications", hub.ServeHTTP)

	// Rutas por módulo
	var limiter func(http.Handler) http.Handler
	if opts.AuthRatePerMin > 0 {
		limiter = middleware.RateLimit(opts.AuthRatePerMin, opts.AuthRatePerMin)
	}
	accounts.RegisterRoutes(r, accountsSvc, opts.Tokens, limiter)
	medications.RegisterRoutes(r, medsSvc)
	doses.RegisterRoutes(r, responder, sched)
	preferences.RegisterRoutes(r, prefsSvc)

	return &App{
		Handler:     r,
		Scheduler:   sched,
		Hub:         hub,
		reminders:   reminders,
		medications: medsSvc,
		accounts:    accountsSvc,
		log:         log.With(map[string]any{"component": "app"}),
	}, nil
}

// Start registra el category de recordatorios, normaliza la lista guardada y
// reconstruye el schedule. Se llama una vez al arrancar.
func (a *App) Start(ctx context.Context) error {
	if err := a.reminders.Setup(ctx); err != nil {
		return err
	}

	list, err := a.medications.Refresh(ctx)
	if err != nil {
		return err
	}

	sess, ok, err := a.accounts.CurrentSession(ctx)
	if err != nil {
		a.log.Warn("current session unreadable", map[string]any{"err": err})
	}
	fields := map[string]any{"medications": len(list), "pending": a.Scheduler.PendingCount()}
	if ok {
		fields["user"] = sess.User.Username
	}
	a.log.Info("app started", fields)
	return nil
}
