package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/studystream/study-stream/internal/blob"
	"github.com/studystream/study-stream/internal/config"
	"github.com/studystream/study-stream/internal/database"
	"github.com/studystream/study-stream/internal/server"
	"github.com/studystream/study-stream/internal/summary"
	"github.com/teris-io/shortid"
)

type ChatApp struct {
	log            *log.Logger
	db             database.Repository
	mux            *http.Server
	cs             *server.ChatServer
	pipeline       *summary.Pipeline
	blobStore      blob.Store
	validate       *validator.Validate
	signingKey     []byte
	allowedOrigins []string
}

func NewChatApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, db database.Repository,
	pipeline *summary.Pipeline, blobStore blob.Store, uploadDir string, cfg *config.Config) *ChatApp {
	s := &ChatApp{
		log:            logger,
		db:             db,
		cs:             cs,
		pipeline:       pipeline,
		blobStore:      blobStore,
		validate:       validator.New(),
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("GET /api/chat/rooms", s.authMiddleware(s.listRooms))
	mux.Handle("POST /api/chat/rooms", s.authMiddleware(s.createRoom))
	mux.Handle("GET /api/chat/rooms/{id}/messages", s.authMiddleware(s.getRoomMessages))
	mux.Handle("POST /api/chat/rooms/{id}/messages", s.authMiddleware(s.postRoomMessage))
	mux.Handle("POST /api/chat/rooms/{id}/end", s.authMiddleware(s.endRoom))
	mux.Handle("POST /api/chat/upload", s.authMiddleware(s.upload))
	mux.Handle("GET /api/chat/summaries", s.authMiddleware(s.listSummaries))
	mux.HandleFunc("GET /api/papers", s.listPapers)
	mux.HandleFunc("GET /api/papers/semester/{semester}", s.listPapersBySemester)
	mux.Handle("POST /api/papers", s.authMiddleware(s.uploadPapers))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	if uploadDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir))))
	}

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *ChatApp) generateShortId() (string, error) {
	return shortid.Generate()
}

func (s *ChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
