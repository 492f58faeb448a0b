package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/skalski/evermult/pkg/batch"
	"github.com/skalski/evermult/pkg/timerecord"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(s.status())
}

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	rows, err := s.DB.ListRunRows(r.Context(), 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(rows)
}

func (s *Server) handleBackups(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	infos, err := s.DB.ListBackups(r.Context(), q.Get("user"), q.Get("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(infos)
}

type RunNowRequest struct {
	Date   string `json:"date"`
	DryRun *bool  `json:"dry_run"`
}

type RunNowResult struct {
	UserID        string  `json:"user_id"`
	Status        string  `json:"status"`
	Error         string  `json:"error,omitempty"`
	Found         int     `json:"found"`
	Transformed   int     `json:"transformed"`
	DataLoss      int     `json:"data_loss"`
	OriginalHours float64 `json:"original_hours"`
	NewHours      float64 `json:"new_hours"`
}

type RunNowResponse struct {
	Date    string         `json:"date"`
	DryRun  bool           `json:"dry_run"`
	Results []RunNowResult `json:"results"`
}

func (s *Server) handleRunNow(w http.ResponseWriter, r *http.Request) {
	var req RunNowRequest
	if r.Body != nil {
		// An empty body means "yesterday, config defaults".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	day := timerecord.Yesterday()
	if req.Date != "" {
		parsed, err := timerecord.ParseDate(req.Date)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		day = parsed
	}

	cfg := s.Config()
	if req.DryRun != nil {
		cfg.DryRun = *req.DryRun
	}

	summaries, err := s.Runner.RunForDate(r.Context(), day, cfg)
	if err != nil {
		var guard *batch.ErrDateAlreadyRun
		if errors.As(err, &guard) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := RunNowResponse{Date: day.String(), DryRun: cfg.DryRun}
	for _, sum := range summaries {
		res := RunNowResult{
			UserID:        sum.UserID,
			Status:        "ok",
			Found:         sum.Found,
			Transformed:   sum.Transformed,
			DataLoss:      sum.DataLoss,
			OriginalHours: sum.OriginalHours(),
			NewHours:      sum.UpdatedHours(),
		}
		if sum.Err != nil {
			res.Status = "error"
			res.Error = sum.Err.Error()
		}
		resp.Results = append(resp.Results, res)
	}
	json.NewEncoder(w).Encode(resp)
}
