package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"gigflow/auth"
	"gigflow/bid"
	"gigflow/gig"
	"gigflow/hire"
	"gigflow/notify"
)

// AuthService is the identity surface used by the API.
type AuthService interface {
	TokenVerifier
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	GetUserByID(ctx context.Context, userID string) (*auth.User, error)
}

// GigService posts and lists gigs.
type GigService interface {
	Create(ctx context.Context, params gig.CreateParams) (gig.Gig, error)
	ListOpen(ctx context.Context, f gig.Filters) ([]gig.Listing, error)
}

// BidService submits bids and lists a gig's bids for its owner.
type BidService interface {
	Submit(ctx context.Context, params bid.SubmitParams) (bid.Bid, error)
	ListForGig(ctx context.Context, gigID, actorID string) ([]bid.Detail, error)
}

// HireService runs the hire decision.
type HireService interface {
	Hire(ctx context.Context, params hire.Params) (bid.Detail, error)
}

// Subscriber joins real-time channels.
type Subscriber interface {
	Subscribe(recipient string) notify.Subscription
}

// Pinger reports backing store liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps wires the API to its services.
type Deps struct {
	Logger   *slog.Logger
	Auth     AuthService
	Gigs     GigService
	Bids     BidService
	Hire     HireService
	Hub      Subscriber
	DB       Pinger
	TokenTTL time.Duration
	// Heartbeat is the idle interval between SSE keep-alive comments.
	Heartbeat time.Duration
}

type api struct {
	log       *slog.Logger
	validate  *validator.Validate
	auth      AuthService
	gigs      GigService
	bids      BidService
	hire      HireService
	hub       Subscriber
	db        Pinger
	tokenTTL  time.Duration
	heartbeat time.Duration
}

// NewRouter builds the HTTP handler tree.
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	a := &api{
		log:       log,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		auth:      d.Auth,
		gigs:      d.Gigs,
		bids:      d.Bids,
		hire:      d.Hire,
		hub:       d.Hub,
		db:        d.DB,
		tokenTTL:  d.TokenTTL,
		heartbeat: d.Heartbeat,
	}
	if a.tokenTTL <= 0 {
		a.tokenTTL = 24 * time.Hour
	}
	if a.heartbeat <= 0 {
		a.heartbeat = 25 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", a.health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", a.register)
			r.Post("/login", a.login)
			r.Post("/logout", a.logout)
			r.With(RequireAuth(log, a.auth)).Get("/me", a.me)
		})
		r.Route("/gigs", func(r chi.Router) {
			r.Get("/", a.listGigs)
			r.With(RequireAuth(log, a.auth)).Post("/", a.createGig)
		})
		r.Route("/bids", func(r chi.Router) {
			r.Use(RequireAuth(log, a.auth))
			r.Post("/", a.submitBid)
			r.Get("/{gigId}", a.listBids)
			r.Patch("/{bidId}/hire", a.hireBid)
		})
		r.Get("/notifications/stream", a.stream)
	})

	return r
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.db.Ping(ctx); err != nil {
			a.log.Warn("health: database ping failed", slog.Any("error", err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"status": "degraded"})
			return
		}
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// decode reads a JSON body into dst and validates its struct tags.
func (a *api) decode(r *http.Request, dst any) error {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		return errBadRequest
	}
	if err := a.validate.Struct(dst); err != nil {
		return &validationError{err: err}
	}
	return nil
}

type validationError struct {
	err error
}

func (e *validationError) Error() string { return e.err.Error() }

func (e *validationError) Unwrap() error { return errBadRequest }
