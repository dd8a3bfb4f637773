package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/bankquality/internal/core"
	"github.com/JonMunkholm/bankquality/internal/csvio"
	"github.com/JonMunkholm/bankquality/internal/logging"
	"github.com/JonMunkholm/bankquality/internal/web/templates"
)

// issuesPath prefixes the validator links on the report page.
const issuesPath = "/api/issues"

var errBadFormat = errors.New("unsupported format")

// IssuesResponse is a validator subset with rows encoded as in the cleaned
// CSV output.
type IssuesResponse struct {
	RunID   string     `json:"run_id"`
	Check   string     `json:"check"`
	Table   string     `json:"table"`
	Count   int        `json:"count"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// CheckSummary is one entry of GET /api/issues.
type CheckSummary struct {
	Check string `json:"check"`
	Table string `json:"table"`
	Count int    `json:"count"`
	Link  string `json:"link"`
}

// StatusResponse describes the run slot and the latest run.
type StatusResponse struct {
	Active      int    `json:"active"`
	Available   int    `json:"available"`
	LatestRunID string `json:"latest_run_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleRun runs the pipeline synchronously and returns the report. The run
// is detached from the client connection so a disconnect cannot leave the
// sinks half written.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runner.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, run.Summary())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	run, err := s.runner.Latest()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, run.Summary())
}

func (s *Server) handleReportPage(w http.ResponseWriter, r *http.Request) {
	run, err := s.runner.Latest()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := templates.Report(templates.NewReportData(run.ID, run.Result, issuesPath))
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render report", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.runner.Status()
	resp := StatusResponse{Active: st.Active, Available: st.Available}
	if run, err := s.runner.Latest(); err == nil {
		resp.LatestRunID = run.ID
	}
	writeJSON(w, resp)
}

// handleListChecks lists every validator with its row count in the latest run.
func (s *Server) handleListChecks(w http.ResponseWriter, r *http.Request) {
	run, err := s.runner.Latest()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	checks := core.Checks()
	out := make([]CheckSummary, 0, len(checks))
	for _, c := range checks {
		set, err := run.Result.Issues.Lookup(c)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		out = append(out, CheckSummary{
			Check: c,
			Table: set.Table,
			Count: len(set.Rows),
			Link:  issuesPath + "/" + c,
		})
	}
	writeJSON(w, out)
}

// handleIssues returns the rows a validator flagged in the latest run, as
// JSON or, with ?format=csv, as a CSV download.
func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	check := chi.URLParam(r, "check")

	run, err := s.runner.Latest()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	set, err := run.Result.Issues.Lookup(check)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	def := core.MustGet(set.Table)

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		rows := make([][]string, len(set.Rows))
		for i, row := range set.Rows {
			rows[i] = def.Encode(row)
		}
		writeJSON(w, IssuesResponse{
			RunID:   run.ID,
			Check:   set.Check,
			Table:   set.Table,
			Count:   len(rows),
			Columns: def.Info.Columns,
			Rows:    rows,
		})

	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", check+".csv"))
		if err := csvio.WriteTable(w, def, set.Rows); err != nil {
			logging.FromContext(r.Context()).Error("write issues csv", "check", check, "error", err)
		}

	default:
		s.respondError(w, r, fmt.Errorf("%w %q", errBadFormat, format))
	}
}

// clientIP strips the port from a RemoteAddr.
func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
