package stub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

// maxUploadMemory bounds multipart parsing; larger parts spill to disk.
const maxUploadMemory = 32 << 20

type relocateRequest struct {
	PatientID string            `json:"patientId"`
	TempPaths map[string]string `json:"tempPaths"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.unhealthy.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.uploads.Add(1)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := []string{}
	for _, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			files = append(files, path.Join("tmp", path.Base(fh.Filename)))
		}
	}
	slog.Debug("stub upload", "files", len(files))
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (s *Server) handleRelocate(w http.ResponseWriter, r *http.Request) {
	var req relocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	patientID := strings.TrimSpace(req.PatientID)
	if patientID == "" {
		writeError(w, http.StatusBadRequest, "patientId is required")
		return
	}
	if len(req.TempPaths) == 0 {
		writeError(w, http.StatusBadRequest, "tempPaths is required")
		return
	}

	newPaths := make(map[string]string, len(req.TempPaths))
	for category, tempPath := range req.TempPaths {
		if strings.TrimSpace(tempPath) == "" {
			writeError(w, http.StatusBadRequest, "empty path for category "+category)
			return
		}
		newPaths[category] = RelocatedPath(patientID, category, tempPath)
	}
	writeJSON(w, http.StatusOK, map[string]any{"newPaths": newPaths})
}

// RelocatedPath is where the stub claims a temporary file was moved.
func RelocatedPath(patientID, category, tempPath string) string {
	return path.Join("patients", patientID, category, path.Base(tempPath))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
