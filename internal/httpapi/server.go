package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/basaa-mt/translator-api/internal/cache"
	"github.com/basaa-mt/translator-api/internal/corrections"
	"github.com/basaa-mt/translator-api/internal/direction"
	"github.com/basaa-mt/translator-api/internal/model"
)

type translationService interface {
	Translate(ctx context.Context, text string, d direction.Direction, quality string) (string, error)
	CacheStats() cache.Stats
	LanguageMismatches() uint64
}

type correctionSink interface {
	Append(ctx context.Context, rec corrections.Record) (corrections.Record, error)
}

type modelStatus interface {
	Loaded() bool
	Status() model.Status
}

type probeSchedule interface {
	NextProbe() (time.Time, bool)
}

type correctionCounter interface {
	CountCorrections(ctx context.Context, direction string) (int, error)
}

type Server struct {
	translator  translationService
	corrections correctionSink
	model       modelStatus
	probe       probeSchedule
	stored      correctionCounter

	version     string
	title       string
	proxyPrefix string

	mux     *http.ServeMux
	handler http.Handler
	server  *http.Server
}

type Option func(*Server)

func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

func WithTitle(title string) Option {
	return func(s *Server) {
		s.title = title
	}
}

// WithProxyPrefix sets the path prefix a reverse proxy adds in front of the
// API. An empty prefix disables rewriting.
func WithProxyPrefix(prefix string) Option {
	return func(s *Server) {
		s.proxyPrefix = prefix
	}
}

// WithProbe reports the next model reload attempt on /stats.
func WithProbe(p probeSchedule) Option {
	return func(s *Server) {
		s.probe = p
	}
}

// WithCorrectionCounter reports the number of stored corrections on /stats.
func WithCorrectionCounter(c correctionCounter) Option {
	return func(s *Server) {
		s.stored = c
	}
}

func NewServer(translator translationService, sink correctionSink, status modelStatus, opts ...Option) *Server {
	s := &Server{
		translator:  translator,
		corrections: sink,
		model:       status,
		version:     "0.1.25",
		title:       "Traducteur Bassa ↔ Français",
		proxyPrefix: "/proxy",
		mux:         http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	s.handler = logRequests(stripProxyPrefix(s.proxyPrefix, s.mux))
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/stats", s.handleStats)
	s.mux.HandleFunc("/translate", s.handleTranslate)
	s.mux.HandleFunc("/correction", s.handleCorrection)
	s.mux.HandleFunc("/", s.handleRoot)
}
