package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/digkill/TGPromoNFTBot/internal/metrics"
	"github.com/digkill/TGPromoNFTBot/internal/models"
	"github.com/digkill/TGPromoNFTBot/internal/service"
	"github.com/digkill/TGPromoNFTBot/internal/validation"
)

const defaultRecentBroadcasts = 20

// Wallet is the read side of the service wallet.
type Wallet interface {
	Configured() bool
	Address() string
	GetBalance(ctx context.Context, addr string) (*big.Int, error)
}

type Server struct {
	addr       string
	username   string
	password   string
	log        *slog.Logger
	promos     *service.PromoService
	nfts       *service.NftService
	broadcasts *service.BroadcastService
	wallet     Wallet
	metrics    *metrics.Metrics
	router     *chi.Mux

	// background deliveries run under bgCtx, cancelled when Run shuts down.
	background sync.WaitGroup
	bgCtx      context.Context
	stopBg     context.CancelFunc
}

func NewServer(addr, username, password string, log *slog.Logger, promos *service.PromoService, nfts *service.NftService, broadcasts *service.BroadcastService, wallet Wallet, m *metrics.Metrics) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:       addr,
		username:   username,
		password:   password,
		log:        log,
		promos:     promos,
		nfts:       nfts,
		broadcasts: broadcasts,
		wallet:     wallet,
		metrics:    m,
		router:     r,
	}
	s.bgCtx, s.stopBg = context.WithCancel(context.Background())
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Group(func(protected chi.Router) {
		protected.Use(s.basicAuthMiddleware())
		protected.Get("/stats", s.handleStats)
		protected.Get("/wallet", s.handleWallet)
		protected.Route("/promo-codes", func(r chi.Router) {
			r.Get("/", s.handleListPromos)
			r.Post("/", s.handleCreatePromo)
			r.Get("/{code}", s.handleGetPromo)
		})
		protected.Route("/nfts", func(r chi.Router) {
			r.Get("/", s.handleListNfts)
			r.Post("/{tokenID}/address", s.handleResolveAddress)
		})
		protected.Route("/broadcasts", func(r chi.Router) {
			r.Get("/", s.handleRecentBroadcasts)
			r.Post("/", s.handleCreateBroadcast)
			r.Post("/{id}/send", s.handleSendBroadcast)
		})
	})
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.stopBg()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("admin shutdown error", "err", err)
		}
	}()

	s.log.Info("admin panel listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin listen: %w", err)
	}
	s.background.Wait()
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.promos.Stats(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	if s.wallet == nil || !s.wallet.Configured() {
		http.Error(w, "wallet not configured", http.StatusServiceUnavailable)
		return
	}
	addr := s.wallet.Address()
	balance, err := s.wallet.GetBalance(r.Context(), addr)
	if err != nil {
		s.log.Error("wallet balance", "err", err)
		http.Error(w, "balance unavailable", http.StatusBadGateway)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"address":      addr,
		"balance_nano": balance.String(),
	})
}

func (s *Server) handleListPromos(w http.ResponseWriter, r *http.Request) {
	var status models.PromoStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		var err error
		if status, err = models.ParsePromoStatus(raw); err != nil {
			s.badRequest(w, err)
			return
		}
	}
	promos, err := s.promos.List(r.Context(), status)
	if err != nil {
		s.internalError(w, err)
		return
	}
	out := make([]promoResponse, 0, len(promos))
	for i := range promos {
		out = append(out, newPromoResponse(&promos[i]))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePromo(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	promo, err := s.promos.Create(r.Context(), req.Code, req.ProductName, req.Description)
	if errors.Is(err, service.ErrPromoInvalid) {
		s.badRequest(w, err)
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newPromoResponse(promo))
}

func (s *Server) handleGetPromo(w http.ResponseWriter, r *http.Request) {
	promo, err := s.promos.Get(r.Context(), validation.NormalizeCode(chi.URLParam(r, "code")))
	if err != nil {
		s.internalError(w, err)
		return
	}
	if promo == nil {
		http.Error(w, "promo not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, newPromoResponse(promo))
}

func (s *Server) handleListNfts(w http.ResponseWriter, r *http.Request) {
	status := models.NftStatusMinted
	if raw := r.URL.Query().Get("status"); raw != "" {
		var err error
		if status, err = models.ParseNftStatus(raw); err != nil {
			s.badRequest(w, err)
			return
		}
	}
	tokens, err := s.promos.ListNfts(r.Context(), status)
	if err != nil {
		s.internalError(w, err)
		return
	}
	pendingOnly := r.URL.Query().Get("pending") == "true"
	out := make([]nftResponse, 0, len(tokens))
	for i := range tokens {
		if pendingOnly && !tokens[i].NftAddress.Pending {
			continue
		}
		out = append(out, newNftResponse(&tokens[i]))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleResolveAddress(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	addr := validation.NormalizeAddress(req.Address)
	if !validation.IsValidAddress(addr) {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}
	ok, err := s.nfts.ResolveAddress(r.Context(), chi.URLParam(r, "tokenID"), addr)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if !ok {
		http.Error(w, "token not found or address already final", http.StatusConflict)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"nft_address": addr})
}

func (s *Server) handleRecentBroadcasts(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentBroadcasts
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	recent, err := s.broadcasts.Recent(r.Context(), limit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	out := make([]broadcastResponse, 0, len(recent))
	for i := range recent {
		out = append(out, newBroadcastResponse(&recent[i]))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	audience := models.AudienceAll
	if strings.TrimSpace(req.Audience) != "" {
		var err error
		if audience, err = models.ParseAudience(req.Audience); err != nil {
			s.badRequest(w, err)
			return
		}
	}
	msg, err := s.broadcasts.Create(r.Context(), req.Text, audience, req.AdminChatID)
	if errors.Is(err, service.ErrBroadcastEmpty) {
		http.Error(w, "text required", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newBroadcastResponse(msg))
}

// handleSendBroadcast accepts the request and delivers in the background.
func (s *Server) handleSendBroadcast(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	msg, err := s.broadcasts.Get(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if msg == nil {
		http.Error(w, "broadcast not found", http.StatusNotFound)
		return
	}
	if msg.Status == models.BroadcastStatusSent {
		http.Error(w, "broadcast already sent", http.StatusConflict)
		return
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if _, err := s.broadcasts.Send(s.bgCtx, id, msg.CreatedByAdminID); err != nil {
			s.log.Error("send broadcast", "id", id, "err", err)
		}
	}()
	s.writeJSON(w, http.StatusAccepted, newBroadcastResponse(msg))
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != s.username || pass != s.password {
				w.Header().Set("WWW-Authenticate", `Basic realm="nftbot"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("admin handler error", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
