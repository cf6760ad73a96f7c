package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cartagena-corp/lm-comments/internal/config"
	"github.com/cartagena-corp/lm-comments/internal/metrics"
	"github.com/cartagena-corp/lm-comments/internal/repository"
	"github.com/rs/zerolog"
)

// janitor removes upload files that no attachment row references.
// Those are left behind when the process dies between a file copy and the commit.
type janitor struct {
	files       FileStorage
	attachments repository.AttachmentRepository
	interval    time.Duration
	grace       time.Duration
	metrics     *metrics.Metrics
	log         zerolog.Logger
	now         func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	stopped bool // set by Stop; a later Start returns at once
	mu      sync.Mutex
}

func newJanitor(files FileStorage, attachments repository.AttachmentRepository, cfg config.JanitorConfig, m *metrics.Metrics, log zerolog.Logger) *janitor {
	return &janitor{
		files:       files,
		attachments: attachments,
		interval:    cfg.Interval,
		grace:       cfg.GracePeriod,
		metrics:     m,
		log:         log.With().Str("service", "janitor").Logger(),
		now:         time.Now,
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called.
// It blocks; a zero interval disables the loop. Start after Stop is a no-op.
func (j *janitor) Start(ctx context.Context) {
	if j.interval <= 0 {
		j.log.Info().Msg("Upload janitor disabled")
		return
	}

	j.mu.Lock()
	if j.running || j.stopped {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.ctx, j.cancel = context.WithCancel(ctx)
	j.wg.Add(1)
	j.mu.Unlock()
	defer j.wg.Done()

	j.log.Info().Dur("interval", j.interval).Dur("grace_period", j.grace).Msg("Upload janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			j.log.Info().Msg("Upload janitor stopping")
			return
		case <-ticker.C:
			if _, err := j.Sweep(j.ctx); err != nil {
				j.log.Error().Err(err).Msg("Upload sweep failed")
			}
		}
	}
}

// Stop cancels the loop and waits for an in-flight sweep
func (j *janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.stopped = true
	if !j.running {
		return
	}

	j.cancel()
	j.wg.Wait()
	j.running = false
	j.log.Info().Msg("Upload janitor stopped")
}

// Sweep removes unreferenced files older than the grace period
func (j *janitor) Sweep(ctx context.Context) (int, error) {
	files, err := j.files.List()
	if err != nil {
		return 0, fmt.Errorf("failed to list uploads: %w", err)
	}

	cutoff := j.now().Add(-j.grace)
	var candidates []string
	for _, f := range files {
		if f.ModTime.Before(cutoff) {
			candidates = append(candidates, f.Name)
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	referenced, err := j.attachments.ExistingFileNames(ctx, candidates)
	if err != nil {
		return 0, fmt.Errorf("failed to check attachment references: %w", err)
	}

	removed := 0
	for _, name := range candidates {
		if referenced[name] {
			continue
		}
		if err := ctx.Err(); err != nil {
			break
		}
		if err := j.files.Remove(name); err != nil {
			j.metrics.FileDeleteFailed()
			j.log.Warn().Err(err).Str("file", name).Msg("Failed to remove orphaned upload")
			continue
		}
		removed++
	}

	j.metrics.OrphansRemoved(removed)
	if removed > 0 {
		j.log.Info().Int("removed", removed).Int("checked", len(candidates)).Msg("Orphaned uploads removed")
	}
	return removed, nil
}
