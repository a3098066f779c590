// Package filerelocation provides the file relocation endpoint probe.
package filerelocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jandubois/clinicprobe/internal/clinic"
	"github.com/jandubois/clinicprobe/internal/probe"
)

// Name is the probe subcommand name.
const Name = "file-relocation"

// Mover is the relocation call of the service client.
type Mover interface {
	MoveFiles(ctx context.Context, req clinic.MoveRequest) (*clinic.MoveResult, error)
}

// GetDescription returns the probe description.
func GetDescription() probe.Description {
	return probe.Description{
		Name:        Name,
		Description: "Ask the service to move uploaded files to their permanent location",
		Version:     "1.0.0",
		Subcommand:  Name,
		Arguments: probe.Arguments{
			Required: map[string]probe.ArgumentSpec{
				"patient_id": {
					Type:        "string",
					Description: "Patient identifier",
				},
				"path": {
					Type:        "string",
					Description: "Temporary path per file category (category=path, repeatable)",
				},
			},
		},
	}
}

// ParsePaths turns category=path pairs into a mapping. Later pairs for the
// same category replace earlier ones.
func ParsePaths(pairs []string) (map[string]string, error) {
	paths := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		category, path, ok := strings.Cut(pair, "=")
		category = strings.TrimSpace(category)
		path = strings.TrimSpace(path)
		if !ok || category == "" || path == "" {
			return nil, fmt.Errorf("invalid path %q: expected category=path", pair)
		}
		paths[category] = path
	}
	return paths, nil
}

// Run sends a single relocation request and logs the outcome. It never
// retries, and leaves validating the request to the service.
func Run(ctx context.Context, mover Mover, patientID string, tempPaths map[string]string, log *slog.Logger) *probe.Result {
	log.Info("relocating files", "patient_id", patientID, "categories", sortedKeys(tempPaths))

	res, err := mover.MoveFiles(ctx, clinic.MoveRequest{
		PatientID: patientID,
		TempPaths: tempPaths,
	})

	var statusErr *clinic.StatusError
	switch {
	case err == nil:
	case errors.As(err, &statusErr):
		log.Error("file relocation failed", "status", statusErr.Code, "error", statusErr.Message)
		return &probe.Result{
			Status:  probe.StatusCritical,
			Message: fmt.Sprintf("Relocation failed: %s", statusErr.Message),
			Metrics: map[string]any{"status_code": statusErr.Code},
		}
	case clinic.IsTransport(err):
		log.Error("network error during file relocation", "error", err)
		return &probe.Result{
			Status:  probe.StatusCritical,
			Message: fmt.Sprintf("Network error: %v", err),
		}
	default:
		log.Error("unreadable relocation response", "error", err)
		return &probe.Result{
			Status:  probe.StatusCritical,
			Message: fmt.Sprintf("Relocation response unreadable: %v", err),
		}
	}

	metrics := map[string]any{"status_code": res.StatusCode}
	if res.NewPaths == nil {
		log.Warn("relocation succeeded without newPaths", "status", res.StatusCode)
		return &probe.Result{
			Status:  probe.StatusWarning,
			Message: "Relocation succeeded but the response carried no newPaths",
			Metrics: metrics,
		}
	}

	log.Info("files relocated", "patient_id", patientID, "status", res.StatusCode)
	log.Info("new paths", "paths", res.NewPaths)

	data := make(map[string]any, len(res.NewPaths))
	for category, path := range res.NewPaths {
		data[category] = path
	}
	metrics["files"] = len(res.NewPaths)

	return &probe.Result{
		Status:  probe.StatusOK,
		Message: fmt.Sprintf("Relocated %d files for patient %s", len(res.NewPaths), patientID),
		Metrics: metrics,
		Data:    map[string]any{"new_paths": data},
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
