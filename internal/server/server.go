package server

import (
	"context"
	"embed"
	"io/fs"
	"net/http"

	"github.com/skalski/evermult/pkg/batch"
	"github.com/skalski/evermult/pkg/storage"
	"github.com/skalski/evermult/pkg/timerecord"
)

//go:embed web
var WebFS embed.FS

// Status is the config echo shown on the dashboard landing page.
type Status struct {
	Multiplier float64  `json:"multiplier"`
	Users      []string `json:"users"`
	DryRun     bool     `json:"dry_run"`
	RunHour    int      `json:"run_hour"`
	RunMinute  int      `json:"run_minute"`
	Yesterday  string   `json:"yesterday"`
}

// Server exposes the dashboard and its JSON API. Running batches goes through
// the same Runner the CLI and scheduler use, so the date guard and ledger
// apply to dashboard-triggered runs too.
type Server struct {
	DB       *storage.DB
	Runner   *batch.Runner
	Config   func() batch.RunConfig // re-read per request so config edits apply
	Schedule func() (hour, minute int)
	Username string
	Password string
}

func (s *Server) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.basicAuth(s.handleStatus))
	mux.HandleFunc("GET /api/summaries", s.basicAuth(s.handleSummaries))
	mux.HandleFunc("GET /api/backups", s.basicAuth(s.handleBackups))
	mux.HandleFunc("POST /api/run-now", s.basicAuth(s.handleRunNow))

	webRoot, err := fs.Sub(WebFS, "web")
	if err != nil {
		return err
	}
	fileServer := http.FileServer(http.FS(webRoot))
	mux.Handle("/", s.basicAuthStatic(fileServer))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	return srv.ListenAndServe()
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) basicAuthStatic(next http.Handler) http.Handler {
	return s.basicAuth(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
	})
}

func (s *Server) status() Status {
	cfg := s.Config()
	hour, minute := 0, 0
	if s.Schedule != nil {
		hour, minute = s.Schedule()
	}
	return Status{
		Multiplier: cfg.Multiplier,
		Users:      cfg.Users,
		DryRun:     cfg.DryRun,
		RunHour:    hour,
		RunMinute:  minute,
		Yesterday:  timerecord.Yesterday().String(),
	}
}
