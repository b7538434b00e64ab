// Package upload sends Health Auto Export JSON exports from disk to a
// VitalSync server, skipping files the server already accepted.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/claude/vitalsync/internal/ingest"
	"github.com/claude/vitalsync/internal/models"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesPartial  int
	FilesSkipped  int
	FilesErrored  int

	MetricBatchesSent int
	WorkoutsSent      int
}

// Uploader walks a directory of payload files and POSTs each one.
type Uploader struct {
	client *Client
	state  *StateDB
	root   string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. client may be nil in dry-run mode.
func New(client *Client, state *StateDB, root string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		root:   root,
		dryRun: dryRun,
		log:    log,
	}
}

// Run uploads every *.json file below the root in lexical order. Per-file
// failures are counted and logged; only walk errors and cancellation abort.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	err := filepath.WalkDir(u.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		u.processFile(ctx, path)
		return nil
	})
	if err != nil {
		return &u.stats, fmt.Errorf("walking %s: %w", u.root, err)
	}
	return &u.stats, nil
}

func (u *Uploader) processFile(ctx context.Context, path string) {
	u.stats.FilesTotal++
	relPath, err := filepath.Rel(u.root, path)
	if err != nil {
		relPath = path
	}

	hash, err := HashFile(path)
	if err != nil {
		u.fail(relPath, "hash failed", err)
		return
	}

	uploaded, err := u.state.IsUploaded(relPath, hash)
	if err != nil {
		u.fail(relPath, "state check failed", err)
		return
	}
	if uploaded {
		u.stats.FilesSkipped++
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		u.fail(relPath, "read failed", err)
		return
	}
	var payload models.HAEPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		u.fail(relPath, "parse failed", err)
		return
	}
	if payload.Data == nil {
		u.fail(relPath, "parse failed", errors.New("no data envelope"))
		return
	}

	metrics, workouts := len(payload.Data.Metrics), len(payload.Data.Workouts)
	if u.dryRun {
		u.log.Info("dry run: would upload", "file", relPath, "metrics", metrics, "workouts", workouts)
		return
	}

	res, err := u.client.Send(ctx, data)
	if err != nil {
		u.fail(relPath, "upload failed", err)
		return
	}

	switch res.Status {
	case http.StatusOK:
		if err := u.state.MarkUploaded(relPath, hash, res.RequestID); err != nil {
			u.fail(relPath, "state update failed", err)
			return
		}
		u.stats.FilesUploaded++
		u.stats.MetricBatchesSent += metrics
		u.stats.WorkoutsSent += workouts
		u.log.Info("uploaded", "file", relPath, "request_id", res.RequestID, "metrics", metrics, "workouts", workouts)
	case http.StatusMultiStatus:
		u.stats.FilesPartial++
		u.log.Warn("partially stored, will retry next run",
			"file", relPath,
			"request_id", res.RequestID,
			"metrics", describe(res.Response.Metrics),
			"workouts", describe(res.Response.Workouts),
		)
	default:
		u.stats.FilesErrored++
		u.log.Error("server rejected payload",
			"file", relPath,
			"request_id", res.RequestID,
			"status", res.Status,
			"metrics", describe(res.Response.Metrics),
			"workouts", describe(res.Response.Workouts),
		)
	}
}

func (u *Uploader) fail(relPath, msg string, err error) {
	u.stats.FilesErrored++
	u.log.Warn(msg, "file", relPath, "error", err)
}

// describe renders an outcome for logging.
func describe(o *ingest.Outcome) string {
	switch {
	case o == nil:
		return "not run"
	case o.Success:
		return o.Message
	default:
		return "failed: " + o.Error
	}
}
