// Package healthupload provides the combined health and upload probe.
package healthupload

import (
	"context"
	"fmt"
	"log/slog"

	units "github.com/docker/go-units"

	"github.com/jandubois/clinicprobe/internal/clinic"
	"github.com/jandubois/clinicprobe/internal/probe"
)

// Name is the probe subcommand name.
const Name = "health-upload"

// Service is the part of the service client this probe uses.
type Service interface {
	Health(ctx context.Context) (*clinic.Reply, error)
	Upload(ctx context.Context, files map[string][]byte) (*clinic.Reply, error)
}

// GetDescription returns the probe description.
func GetDescription() probe.Description {
	return probe.Description{
		Name:        Name,
		Description: "Check service health, then send an empty upload",
		Version:     "1.0.0",
		Subcommand:  Name,
		Arguments:   probe.Arguments{},
	}
}

// Run requests the health endpoint and, only if it answers 2xx, sends one
// empty multipart upload. The upload's status is informational: whatever
// the service answers is logged and the probe reports ok.
func Run(ctx context.Context, svc Service, log *slog.Logger) *probe.Result {
	health, err := svc.Health(ctx)
	if err != nil {
		log.Error("health check failed", "error", err)
		return &probe.Result{
			Status:  probe.StatusCritical,
			Message: fmt.Sprintf("Health check failed: %v", err),
		}
	}
	if !health.OK() {
		log.Error("health check failed", "status", health.StatusCode, "body", health.Decoded())
		return &probe.Result{
			Status:  probe.StatusCritical,
			Message: fmt.Sprintf("Health check failed: %s", statusText(health)),
			Metrics: map[string]any{"health_status": health.StatusCode},
		}
	}
	log.Info("service healthy", "status", health.StatusCode, "body", health.Decoded())

	upload, err := svc.Upload(ctx, nil)
	if err != nil {
		log.Error("upload request failed", "error", err)
		return &probe.Result{
			Status:  probe.StatusCritical,
			Message: fmt.Sprintf("Upload request failed: %v", err),
			Metrics: map[string]any{"health_status": health.StatusCode},
		}
	}

	log.Info("upload response",
		"status", upload.StatusCode,
		"size", units.HumanSize(float64(len(upload.Body))),
		"body", string(upload.Body),
	)

	return &probe.Result{
		Status:  probe.StatusOK,
		Message: fmt.Sprintf("Service healthy; upload answered %s", statusText(upload)),
		Metrics: map[string]any{
			"health_status": health.StatusCode,
			"upload_status": upload.StatusCode,
			"upload_bytes":  len(upload.Body),
		},
		Data: map[string]any{
			"health": health.Decoded(),
			"upload": string(upload.Body),
		},
	}
}

func statusText(r *clinic.Reply) string {
	if r.Status != "" {
		return r.Status
	}
	return fmt.Sprintf("%d", r.StatusCode)
}
