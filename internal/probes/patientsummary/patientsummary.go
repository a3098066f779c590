// Package patientsummary provides the cached patient summary probe.
package patientsummary

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jandubois/clinicprobe/internal/patient"
	"github.com/jandubois/clinicprobe/internal/probe"
	"github.com/jandubois/clinicprobe/internal/store"
)

// Name is the probe subcommand name.
const Name = "patient-summary"

// Source is read-only access to the local key-value store.
type Source interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// GetDescription returns the probe description.
func GetDescription() probe.Description {
	return probe.Description{
		Name:        Name,
		Description: "Summarize the locally cached patient list",
		Version:     "1.0.0",
		Subcommand:  Name,
		Arguments: probe.Arguments{
			Optional: map[string]probe.ArgumentSpec{
				"key": {
					Type:        "string",
					Description: "Store key holding the patient list",
					Default:     store.DefaultKey,
				},
			},
		},
	}
}

// Run reads the patient list under key and logs the record count and a
// summary of the first record. A nil src is treated as an absent store.
// The store is never written.
func Run(ctx context.Context, src Source, key string, log *slog.Logger) *probe.Result {
	if key == "" {
		key = store.DefaultKey
	}

	var raw []byte
	if src != nil {
		value, ok, err := src.Get(ctx, key)
		if err != nil {
			log.Error("read patient cache failed", "key", key, "error", err)
			return &probe.Result{
				Status:  probe.StatusCritical,
				Message: fmt.Sprintf("Failed to read patient cache: %v", err),
			}
		}
		if ok {
			raw = value
		}
	}

	records, err := patient.DecodeList(raw)
	if err != nil {
		log.Error("cached patient data is malformed", "key", key, "bytes", len(raw), "error", err)
		return &probe.Result{
			Status:  probe.StatusCritical,
			Message: fmt.Sprintf("Malformed patient cache: %v", err),
			Data:    map[string]any{"key": key},
		}
	}

	log.Info("cached patients", "key", key, "count", len(records))

	metrics := map[string]any{"count": len(records)}
	if len(records) == 0 {
		return &probe.Result{
			Status:  probe.StatusOK,
			Message: "No cached patients",
			Metrics: metrics,
		}
	}

	summary := patient.Summarize(records[0])
	attrs := []any{"name", summary.Name}
	fees := make(map[string]any, len(summary.Fees))
	for _, fee := range summary.Fees {
		attrs = append(attrs, fee.Field, patient.FormatAmount(fee.Amount))
		fees[fee.Field] = fee.Amount
	}
	log.Info("first cached patient", attrs...)

	return &probe.Result{
		Status:  probe.StatusOK,
		Message: fmt.Sprintf("%d cached patients, first: %s", len(records), summary),
		Metrics: metrics,
		Data: map[string]any{
			"name": summary.Name,
			"fees": fees,
		},
	}
}
