package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appAccount "github.com/paylink/paylink/internal/application/account"
	appChat "github.com/paylink/paylink/internal/application/chat"
	"github.com/paylink/paylink/internal/domain/account"
	"github.com/paylink/paylink/internal/infrastructure/sse"
)

// chatIDParam rebuilds the "aliasA/aliasB" chat id from its two route
// segments.
func chatIDParam(r *http.Request) string {
	return chi.URLParam(r, "chatIDA") + "/" + chi.URLParam(r, "chatIDB")
}

// Data types for requests

type userSignUpRequest struct {
	Identity   string `json:"identity"`
	Name       string `json:"name"`
	Alias      string `json:"alias"`
	ProfilePic string `json:"profile_pic,omitempty"`
	Passphrase string `json:"passphrase"`
}

type businessSignUpRequest struct {
	Identity   string `json:"identity"`
	Name       string `json:"name"`
	Alias      string `json:"alias"`
	Logo       string `json:"logo,omitempty"`
	Category   string `json:"category"`
	Passphrase string `json:"passphrase"`
}

type loginRequest struct {
	Alias      string `json:"alias"`
	Passphrase string `json:"passphrase"`
}

type counterpartyRequest struct {
	Alias    string `json:"alias,omitempty"`
	Identity string `json:"identity,omitempty"`
}

type messageRequest struct {
	Content string `json:"content"`
}

type paymentRequestRequest struct {
	Amount uint64  `json:"amount"`
	Note   *string `json:"note,omitempty"`
}

type settleRequest struct {
	TxID uint64  `json:"tx_id"`
	Note *string `json:"note,omitempty"`
}

type fulfillRequest struct {
	TxID         uint64 `json:"tx_id"`
	ChatID       string `json:"chat_id"`
	MessageIndex int    `json:"message_index"`
}

// Auth handlers

func (s *Server) signUpUser(w http.ResponseWriter, r *http.Request) {
	var req userSignUpRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	u, token, err := s.accountSvc.SignUpUser(r.Context(), appAccount.SignUpUserInput{
		Identity:   account.Identity(req.Identity),
		Name:       req.Name,
		Alias:      req.Alias,
		ProfilePic: req.ProfilePic,
		Passphrase: req.Passphrase,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"user": u, "token": token})
}

func (s *Server) signUpBusiness(w http.ResponseWriter, r *http.Request) {
	var req businessSignUpRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	b, token, err := s.accountSvc.SignUpBusiness(r.Context(), appAccount.SignUpBusinessInput{
		Identity:   account.Identity(req.Identity),
		Name:       req.Name,
		Alias:      req.Alias,
		Logo:       req.Logo,
		Category:   account.Category(req.Category),
		Passphrase: req.Passphrase,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"business": b, "token": token})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	token, md, err := s.accountSvc.Login(r.Context(), req.Alias, req.Passphrase)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"token": token, "account": md})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.accountSvc.Logout(r.Context(), bearerToken(r))
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	md, err := s.accountSvc.MetadataOf(r.Context(), identityFromContext(r.Context()))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, md)
}

// Alias handlers

func (s *Server) aliasAvailable(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "alias")
	available, err := s.accountSvc.AliasAvailable(r.Context(), alias)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"alias": alias, "available": available})
}

func (s *Server) resolveAlias(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "alias")
	md, err := s.accountSvc.ResolveAlias(r.Context(), identityFromContext(r.Context()), alias)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, md)
}

// Data handlers

func (s *Server) fetchInitial(w http.ResponseWriter, r *http.Request) {
	snap, err := s.accountSvc.FetchInitialData(r.Context(), identityFromContext(r.Context()))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) fetchAll(w http.ResponseWriter, r *http.Request) {
	snap, err := s.accountSvc.FetchAllData(r.Context(), identityFromContext(r.Context()))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) readNewHistory(w http.ResponseWriter, r *http.Request) {
	known := 0
	if v := r.URL.Query().Get("known"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid known")
			return
		}
		known = n
	}
	entries, err := s.accountSvc.ReadNewHistory(r.Context(), identityFromContext(r.Context()), known)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// Chat handlers

func (s *Server) createChat(w http.ResponseWriter, r *http.Request) {
	var req counterpartyRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	c, err := s.chatSvc.CreateChat(r.Context(), identityFromContext(r.Context()), appChat.ParticipantRef{
		Alias:    req.Alias,
		Identity: account.Identity(req.Identity),
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (s *Server) getChat(w http.ResponseWriter, r *http.Request) {
	c, err := s.chatSvc.GetChat(r.Context(), identityFromContext(r.Context()), chatIDParam(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) addMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	msg, err := s.chatSvc.AddMessage(r.Context(), identityFromContext(r.Context()), chatIDParam(r), req.Content)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	if err := s.chatSvc.MarkRead(r.Context(), identityFromContext(r.Context()), chatIDParam(r)); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

func (s *Server) requestPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequestRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	pr, err := s.chatSvc.RequestPayment(r.Context(), identityFromContext(r.Context()), chatIDParam(r), req.Amount, req.Note)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, pr)
}

// Settlement handlers

func (s *Server) settle(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if err := s.settlementSvc.Settle(r.Context(), identityFromContext(r.Context()), req.TxID, req.Note); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tx_id": req.TxID, "status": "settled"})
}

func (s *Server) fulfillRequest(w http.ResponseWriter, r *http.Request) {
	var req fulfillRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if err := s.settlementSvc.FulfillRequest(r.Context(), req.TxID, req.ChatID, req.MessageIndex); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tx_id": req.TxID, "status": "fulfilled"})
}

// Relationship handlers

func (s *Server) addRelationship(w http.ResponseWriter, r *http.Request) {
	var req counterpartyRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	rel, err := s.chatSvc.AddBusinessRelationship(r.Context(), identityFromContext(r.Context()), appChat.ParticipantRef{
		Alias:    req.Alias,
		Identity: account.Identity(req.Identity),
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rel)
}

// Stream handler

func (s *Server) streamEndpoint(w http.ResponseWriter, r *http.Request) {
	md, err := s.accountSvc.MetadataOf(r.Context(), identityFromContext(r.Context()))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming not supported")
		return
	}

	client := sse.NewClient(uuid.NewString(), md.Alias)
	s.sseHub.Register(client)
	defer s.sseHub.Unregister(client.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Send an initial comment to flush headers and keep the connection alive.
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case ev, ok := <-client.Events:
			if !ok {
				return
			}
			payload, _ := json.Marshal(ev)
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}
