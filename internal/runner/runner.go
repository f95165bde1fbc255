// Package runner is the wall-clock trigger boundary: it fires chase runs at
// each cadence's configured time of day. The engine itself never schedules
// work; this package is the external scheduler made concrete.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/collecta/internal/chasing/run"
	"github.com/smallbiznis/collecta/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Config   config.Config
	Executor *run.Executor
}

// Runner schedules chase runs with cron entries derived from cadence rows.
type Runner struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      config.Config
	executor *run.Executor

	cron    *cron.Cron
	mu      sync.Mutex
	entries []cron.EntryID
}

func New(p Params) *Runner {
	return &Runner{
		db:       p.DB,
		log:      p.Log.Named("chasing.runner"),
		cfg:      p.Config,
		executor: p.Executor,
		cron:     cron.New(cron.WithLocation(time.UTC)),
	}
}

type cadenceRow struct {
	ID        snowflake.ID
	OrgID     snowflake.ID
	TimeOfDay string
}

// Refresh rebuilds the cron schedule from the current cadence table.
// A cadence with an unparseable time_of_day is skipped, not fatal.
func (r *Runner) Refresh(ctx context.Context) error {
	rows, err := r.listCadences(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		r.cron.Remove(entry)
	}
	r.entries = r.entries[:0]

	for _, row := range rows {
		spec, err := cronSpec(row.TimeOfDay)
		if err != nil {
			r.log.Warn("invalid cadence time_of_day, skipping schedule",
				zap.String("cadence_id", row.ID.String()),
				zap.String("time_of_day", row.TimeOfDay),
			)
			continue
		}
		orgID, cadenceID := row.OrgID, row.ID
		entry, err := r.cron.AddFunc(spec, func() {
			r.chase(orgID, cadenceID)
		})
		if err != nil {
			r.log.Warn("failed to schedule cadence",
				zap.String("cadence_id", cadenceID.String()),
				zap.Error(err),
			)
			continue
		}
		r.entries = append(r.entries, entry)
	}
	r.log.Info("cadence schedule refreshed", zap.Int("cadences", len(r.entries)))
	return nil
}

// RunOnce chases every cadence immediately, regardless of time of day.
func (r *Runner) RunOnce(ctx context.Context) error {
	rows, err := r.listCadences(ctx)
	if err != nil {
		return err
	}
	var errs error
	for _, row := range rows {
		runCtx, cancel := context.WithTimeout(ctx, r.cfg.Chasing.RunTimeout)
		err := r.executor.Chase(runCtx, row.OrgID, row.ID)
		cancel()
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("cadence %s: %w", row.ID.String(), err))
		}
	}
	return errs
}

// Start begins cron dispatch and, when configured, the fallback sweep loop.
func (r *Runner) Start(ctx context.Context) error {
	if err := r.Refresh(ctx); err != nil {
		return err
	}
	r.cron.Start()

	if interval := r.cfg.Chasing.SweepInterval; interval > 0 {
		go r.sweep(interval)
	}
	return nil
}

// Stop halts cron dispatch, waiting for in-flight runs.
func (r *Runner) Stop(ctx context.Context) error {
	stopped := r.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		ctx := context.Background()
		if err := r.Refresh(ctx); err != nil {
			r.log.Warn("schedule refresh failed", zap.Error(err))
		}
		if err := r.RunOnce(ctx); err != nil {
			r.log.Warn("sweep run failed", zap.Error(err))
		}
	}
}

func (r *Runner) chase(orgID, cadenceID snowflake.ID) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Chasing.RunTimeout)
	defer cancel()
	if err := r.executor.Chase(ctx, orgID, cadenceID); err != nil {
		r.log.Warn("scheduled chase failed",
			zap.String("cadence_id", cadenceID.String()),
			zap.Error(err),
		)
	}
}

func (r *Runner) listCadences(ctx context.Context) ([]cadenceRow, error) {
	var rows []cadenceRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, org_id, time_of_day FROM chasing_cadences ORDER BY org_id, id`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// cronSpec converts "HH:MM" into a daily cron expression.
func cronSpec(timeOfDay string) (string, error) {
	hour, minute, found := strings.Cut(strings.TrimSpace(timeOfDay), ":")
	if !found {
		return "", fmt.Errorf("malformed time_of_day %q", timeOfDay)
	}
	h, err := strconv.Atoi(hour)
	if err != nil || h < 0 || h > 23 {
		return "", fmt.Errorf("malformed time_of_day %q", timeOfDay)
	}
	m, err := strconv.Atoi(minute)
	if err != nil || m < 0 || m > 59 {
		return "", fmt.Errorf("malformed time_of_day %q", timeOfDay)
	}
	return fmt.Sprintf("%d %d * * *", m, h), nil
}
