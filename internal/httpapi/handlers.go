package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/basaa-mt/translator-api/internal/corrections"
	"github.com/basaa-mt/translator-api/internal/direction"
	"github.com/basaa-mt/translator-api/internal/quality"
	"github.com/basaa-mt/translator-api/internal/translator"
	"github.com/basaa-mt/translator-api/pkg/log"
)

type translateRequest struct {
	Text      string  `json:"text"`
	Direction string  `json:"direction"`
	Quality   *string `json:"quality"`
}

type translateResponse struct {
	Translation string `json:"translation"`
	Quality     string `json:"quality"`
	Duration    string `json:"duration"`
	Error       string `json:"error,omitempty"`
}

type correctionRequest struct {
	Original    string `json:"original"`
	Translation string `json:"translation"`
	Correction  string `json:"correction"`
	Direction   string `json:"direction"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// handleTranslate never answers with a non-2xx status once the body is
// parsed: bad directions and model failures are reported in the payload.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	dir, err := direction.Parse(req.Direction)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"error": err.Error(),
		})
		return
	}

	q := string(quality.Default)
	if req.Quality != nil {
		q = *req.Quality
	}

	var result string
	err = translator.SafeExecute(func() error {
		out, err := s.translator.Translate(r.Context(), req.Text, dir, q)
		result = out
		return err
	})
	if err != nil {
		log.Error("Translation failed (%s, %s): %v", dir, q, err)
		writeJSON(w, http.StatusOK, translateResponse{
			Translation: dir.Fallback(),
			Quality:     "fallback",
			Duration:    formatDuration(time.Since(start)),
			Error:       err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, translateResponse{
		Translation: result,
		Quality:     q,
		Duration:    formatDuration(time.Since(start)),
	})
}

func (s *Server) handleCorrection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req correctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	rec, err := s.corrections.Append(r.Context(), corrections.Record{
		Original:    req.Original,
		Translation: req.Translation,
		Correction:  req.Correction,
		Direction:   req.Direction,
	})
	if err != nil {
		log.Error("Failed to save correction: %v", err)
		writeJSON(w, http.StatusOK, statusResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	log.Info("Correction %s saved (%s)", rec.ID, rec.Direction)
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "success",
		Message: "Correction enregistrée",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"version":      s.version,
		"model_loaded": s.model != nil && s.model.Loaded(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	modelInfo := map[string]any{
		"loaded": false,
	}
	if s.model != nil {
		st := s.model.Status()
		modelInfo["loaded"] = st.Loaded
		modelInfo["model_path"] = st.ModelPath
		if st.LastError != "" {
			modelInfo["last_error"] = st.LastError
		}
	}
	if s.probe != nil {
		if next, ok := s.probe.NextProbe(); ok {
			modelInfo["next_probe"] = next.UTC().Format(time.RFC3339)
		}
	}
	resp := map[string]any{
		"cache": s.translator.CacheStats(),
		"model": modelInfo,
		"translations": map[string]any{
			"language_mismatches": s.translator.LanguageMismatches(),
		},
	}
	if s.stored != nil {
		n, err := s.stored.CountCorrections(r.Context(), "")
		if err != nil {
			log.Warn("Failed to count corrections: %v", err)
		} else {
			resp["corrections"] = map[string]any{"stored": n}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	base := baseURL(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":             "Bienvenue sur l'API de traduction Bassa ↔ Français",
		"title":               s.title,
		"health_check":        base + "health",
		"translate_endpoint":  base + "translate",
		"correction_endpoint": base + "correction",
	})
}

// baseURL rebuilds the externally visible base URL, honouring the usual
// reverse proxy headers.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = strings.TrimSpace(strings.Split(p, ",")[0])
	}
	host := r.Host
	if h := r.Header.Get("X-Forwarded-Host"); h != "" {
		host = strings.TrimSpace(strings.Split(h, ",")[0])
	}
	return scheme + "://" + host + "/"
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
