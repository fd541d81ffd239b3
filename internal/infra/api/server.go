package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/ports/repository"
	"voice-ai-assistant/internal/infra/logging"
	"voice-ai-assistant/internal/usecase"
)

const maxChatBody = 1 << 20

// RateLimiter bounds requests per key within a window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Options struct {
	RequestTimeout time.Duration
	TokenRateLimit int // per client IP per minute, 0 disables
}

// Server is the chat backend: speech token issuance, chat turns and product images.
type Server struct {
	chat    usecase.ChatUseCase
	tokens  usecase.TokenUseCase
	images  repository.ImageRepository
	limiter RateLimiter
	opts    Options
	log     *zerolog.Logger

	srv *http.Server
}

// NewServer builds the HTTP layer. limiter may be nil.
func NewServer(chat usecase.ChatUseCase, tokens usecase.TokenUseCase, images repository.ImageRepository, limiter RateLimiter, opts Options, log *zerolog.Logger) *Server {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	return &Server{chat: chat, tokens: tokens, images: images, limiter: limiter, opts: opts, log: log}
}

// Routes returns the router with middleware applied.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), CORS())

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(Timeout(s.opts.RequestTimeout))
		r.Get("/api/get-speech-token", s.handleSpeechToken)
		r.Get("/api/models", s.handleModels)
		r.Post("/chat", s.handleChat)
		r.Get("/images/{productID}", s.handleImage)
	})
	return r
}

// ListenAndServe blocks until the server stops. http.ErrServerClosed is not an error.
func (s *Server) ListenAndServe(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleSpeechToken(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && s.opts.TokenRateLimit > 0 {
		ok, err := s.limiter.Allow(r.Context(), clientIP(r), s.opts.TokenRateLimit, time.Minute)
		if err != nil {
			logging.With(r.Context(), s.log).Warn().Err(err).Msg("rate limiter unavailable")
		} else if !ok {
			http.Error(w, "too many token requests", http.StatusTooManyRequests)
			return
		}
	}

	tok, err := s.tokens.Issue(r.Context())
	switch {
	case errors.Is(err, domain.ErrSpeechNotConfigured):
		http.Error(w, "You forgot to add your speech key or region to the configuration.", http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, "There was an error authorizing your speech key.", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxChatBody+1))
	if err != nil || len(body) == 0 {
		http.Error(w, "missing body", http.StatusBadRequest)
		return
	}
	if len(body) > maxChatBody {
		http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
		return
	}
	var req usecase.ChatRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	reply, err := s.chat.Reply(r.Context(), req)
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrNotUserTurn), errors.Is(err, domain.ErrEmptyTurn):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, domain.ErrReplyPending):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "chat timed out", http.StatusGatewayTimeout)
		return
	case err != nil:
		logging.With(r.Context(), s.log).Error().Err(err).Str("session_id", req.SessionID).Msg("chat failed")
		http.Error(w, "chat failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")
	b, err := s.images.Get(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	case err != nil:
		logging.With(r.Context(), s.log).Error().Err(err).Str("product_id", id).Msg("image lookup failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(b)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.chat.ListModels(r.Context())
	if err != nil {
		http.Error(w, "models unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	b, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("encode: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
