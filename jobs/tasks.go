package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/vicops/vicops/internal/auth"
	"github.com/vicops/vicops/internal/rbac"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionPurge removes expired session rows.
	TaskSessionPurge = "auth:session-purge"
	// TaskAuthzCacheWarm preloads role permission sets into the cache.
	TaskAuthzCacheWarm = "authz:cache-warm"
)

// NewSessionPurgeTask constructs the session purge task.
func NewSessionPurgeTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskSessionPurge, nil), nil
}

// NewAuthzCacheWarmTask constructs the cache warm task.
func NewAuthzCacheWarmTask() (*asynq.Task, error) {
	payload, err := json.Marshal(struct{}{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuthzCacheWarm, payload), nil
}

// SessionPurgeJob sweeps the sessions table.
type SessionPurgeJob struct {
	repo   auth.Repository
	logger *slog.Logger
}

// NewSessionPurgeJob constructs the job.
func NewSessionPurgeJob(repo auth.Repository, logger *slog.Logger) *SessionPurgeJob {
	return &SessionPurgeJob{repo: repo, logger: logger}
}

// Handle deletes sessions that have reached their expiry.
func (j *SessionPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	removed, err := j.repo.DeleteExpiredSessions(ctx, time.Now())
	if err != nil {
		j.logger.Error("session purge", slog.Any("error", err))
		return err
	}
	if removed > 0 {
		j.logger.Info("expired sessions purged", slog.Int64("count", removed))
	}
	return nil
}

// AuthzCacheWarmJob reads every role through the permission cache so the
// first requests after a deploy or flush do not pay the database round trip.
type AuthzCacheWarmJob struct {
	roles  *rbac.Service
	cache  rbac.PermissionStore
	logger *slog.Logger
}

// NewAuthzCacheWarmJob constructs the job. The cache argument must be the
// caching store used by the evaluator, not the bare repository.
func NewAuthzCacheWarmJob(roles *rbac.Service, cache rbac.PermissionStore, logger *slog.Logger) *AuthzCacheWarmJob {
	return &AuthzCacheWarmJob{roles: roles, cache: cache, logger: logger}
}

// Handle loads each role and its permission set through the cache.
func (j *AuthzCacheWarmJob) Handle(ctx context.Context, t *asynq.Task) error {
	roles, err := j.roles.ListRoles(ctx)
	if err != nil {
		j.logger.Error("cache warm list roles", slog.Any("error", err))
		return err
	}
	for _, role := range roles {
		if _, err := j.cache.GetRole(ctx, role.ID); err != nil {
			j.logger.Warn("cache warm role", slog.Int64("role_id", role.ID), slog.Any("error", err))
			continue
		}
		if _, err := j.cache.EffectivePermissions(ctx, role.ID); err != nil {
			j.logger.Warn("cache warm permissions", slog.Int64("role_id", role.ID), slog.Any("error", err))
		}
	}
	j.logger.Info("authorization cache warmed", slog.Int("roles", len(roles)))
	return nil
}
