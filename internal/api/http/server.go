package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	appAccount "github.com/paylink/paylink/internal/application/account"
	appChat "github.com/paylink/paylink/internal/application/chat"
	appSettlement "github.com/paylink/paylink/internal/application/settlement"
	"github.com/paylink/paylink/internal/domain/account"
	"github.com/paylink/paylink/internal/domain/chat"
	"github.com/paylink/paylink/internal/domain/relationship"
	"github.com/paylink/paylink/internal/domain/settlement"
	"github.com/paylink/paylink/internal/infrastructure/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	accountSvc    *appAccount.Service
	chatSvc       *appChat.Service
	settlementSvc *appSettlement.Service
	sseHub        *sse.Hub
	logger        zerolog.Logger
}

func NewServer(
	accountSvc *appAccount.Service,
	chatSvc *appChat.Service,
	settlementSvc *appSettlement.Service,
	sseHub *sse.Hub,
	logger zerolog.Logger,
) *Server {
	return &Server{
		accountSvc:    accountSvc,
		chatSvc:       chatSvc,
		settlementSvc: settlementSvc,
		sseHub:        sseHub,
		logger:        logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup/user", s.signUpUser)
			r.Post("/signup/business", s.signUpBusiness)
			r.Post("/login", s.login)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/logout", s.logout)
				r.Get("/me", s.me)
			})
		})

		r.Get("/aliases/{alias}/available", s.aliasAvailable)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/aliases/{alias}", s.resolveAlias)

			r.Get("/data/initial", s.fetchInitial)
			r.Get("/data/all", s.fetchAll)
			r.Get("/history/new", s.readNewHistory)

			r.Route("/chats", func(r chi.Router) {
				r.Post("/", s.createChat)
				// Chat IDs are "aliasA/aliasB", so they span two path
				// segments; chi params cannot match "/".
				r.Get("/{chatIDA}/{chatIDB}", s.getChat)
				r.Post("/{chatIDA}/{chatIDB}/messages", s.addMessage)
				r.Post("/{chatIDA}/{chatIDB}/read", s.markRead)
				r.Post("/{chatIDA}/{chatIDB}/payment-requests", s.requestPayment)
			})

			r.Route("/transfers", func(r chi.Router) {
				r.Post("/", s.settle)
				r.Post("/request-payment", s.fulfillRequest)
			})

			r.Post("/relationships", s.addRelationship)

			r.Get("/stream", s.streamEndpoint)
		})
	})

	return r
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// respondDomainError maps service errors onto HTTP statuses.
func respondDomainError(w http.ResponseWriter, err error) {
	var bothNotFound *settlement.BothAccountsNotFoundError
	var wrongRequester *settlement.WrongRequesterError

	switch {
	case errors.Is(err, account.ErrAnonymousCaller),
		errors.Is(err, appAccount.ErrInvalidSession),
		errors.Is(err, appAccount.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	case errors.As(err, &wrongRequester),
		errors.Is(err, chat.ErrNotAParticipant):
		respondError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.As(err, &bothNotFound),
		errors.Is(err, account.ErrNotFound),
		errors.Is(err, chat.ErrNotFound),
		errors.Is(err, chat.ErrParticipantNotFound),
		errors.Is(err, relationship.ErrBusinessNotFound),
		errors.Is(err, settlement.ErrRequestNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, account.ErrAccountExists),
		errors.Is(err, account.ErrAliasTaken),
		errors.Is(err, settlement.ErrAlreadyRecorded),
		errors.Is(err, settlement.ErrRequestAlreadyFulfilled),
		errors.Is(err, settlement.ErrRequestExpired):
		respondError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, account.ErrInvalidAlias),
		errors.Is(err, chat.ErrSameParticipant),
		errors.Is(err, settlement.ErrInvalidTransaction),
		errors.Is(err, settlement.ErrAmountMismatch):
		respondError(w, http.StatusUnprocessableEntity, "INVALID_PARAM", err.Error())
	case errors.Is(err, settlement.ErrExternalCall):
		respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
