package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/replicore/replicore/pkg/orchestrator"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists orchestration state in SQLite. Protection groups,
// targets, VMs, and sync jobs are written only from executor-reported state;
// failover events are the one record the orchestration core itself owns.
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	return &SQLiteStore{cfg: cfg}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Foreign keys are a connection-level setting.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

// UpsertProtectionGroup inserts or updates a protection group from
// executor-reported state.
func (s *SQLiteStore) UpsertProtectionGroup(ctx context.Context, g *orchestrator.ProtectionGroup) error {
	query := `
		INSERT INTO protection_groups (
			id, name, enabled, rpo_minutes, current_rpo_seconds, status, priority,
			target_id, last_replication_at, last_test_at, test_reminder_days,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			enabled = excluded.enabled,
			rpo_minutes = excluded.rpo_minutes,
			current_rpo_seconds = excluded.current_rpo_seconds,
			status = excluded.status,
			priority = excluded.priority,
			target_id = excluded.target_id,
			last_replication_at = excluded.last_replication_at,
			last_test_at = excluded.last_test_at,
			test_reminder_days = excluded.test_reminder_days,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		g.ID,
		g.Name,
		g.Enabled,
		g.RPOMinutes,
		g.CurrentRPOSeconds,
		g.Status,
		g.Priority,
		g.TargetID,
		g.LastReplicationAt,
		g.LastTestAt,
		g.TestReminderDays,
		g.CreatedAt,
		g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert protection group: %w", err)
	}

	return nil
}

const groupColumns = `id, name, enabled, rpo_minutes, current_rpo_seconds, status, priority,
	   target_id, last_replication_at, last_test_at, test_reminder_days, created_at, updated_at`

func scanGroup(row interface{ Scan(...interface{}) error }) (*orchestrator.ProtectionGroup, error) {
	g := &orchestrator.ProtectionGroup{}
	err := row.Scan(
		&g.ID,
		&g.Name,
		&g.Enabled,
		&g.RPOMinutes,
		&g.CurrentRPOSeconds,
		&g.Status,
		&g.Priority,
		&g.TargetID,
		&g.LastReplicationAt,
		&g.LastTestAt,
		&g.TestReminderDays,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// GetGroup retrieves a protection group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*orchestrator.ProtectionGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM protection_groups WHERE id = ?`

	g, err := scanGroup(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("protection group not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get protection group: %w", err)
	}

	return g, nil
}

// ListGroups lists all protection groups ordered by priority.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]*orchestrator.ProtectionGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM protection_groups ORDER BY priority ASC, name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list protection groups: %w", err)
	}
	defer rows.Close()

	groups := []*orchestrator.ProtectionGroup{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan protection group: %w", err)
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating protection groups: %w", err)
	}

	return groups, nil
}

// UpsertReplicationTarget inserts or updates an appliance record.
func (s *SQLiteStore) UpsertReplicationTarget(ctx context.Context, t *orchestrator.ReplicationTarget) error {
	query := `
		INSERT INTO replication_targets (
			id, name, hostname, health_status, partner_target_id,
			ssh_trust_established, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			hostname = excluded.hostname,
			health_status = excluded.health_status,
			partner_target_id = excluded.partner_target_id,
			ssh_trust_established = excluded.ssh_trust_established,
			updated_at = excluded.updated_at
	`

	var partner interface{}
	if t.PartnerTargetID != "" {
		partner = t.PartnerTargetID
	}

	_, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.Name,
		t.Hostname,
		t.HealthStatus,
		partner,
		t.SSHTrustEstablished,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert replication target: %w", err)
	}

	return nil
}

// GetTarget retrieves a replication target by ID.
func (s *SQLiteStore) GetTarget(ctx context.Context, id string) (*orchestrator.ReplicationTarget, error) {
	query := `
		SELECT id, name, hostname, health_status, partner_target_id,
			   ssh_trust_established, created_at, updated_at
		FROM replication_targets
		WHERE id = ?
	`

	t := &orchestrator.ReplicationTarget{}
	var partner sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.Name,
		&t.Hostname,
		&t.HealthStatus,
		&partner,
		&t.SSHTrustEstablished,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("replication target not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get replication target: %w", err)
	}
	t.PartnerTargetID = partner.String

	return t, nil
}

// SetTargetTrust records the outcome of an SSH trust probe.
func (s *SQLiteStore) SetTargetTrust(ctx context.Context, id string, established bool) error {
	query := `UPDATE replication_targets SET ssh_trust_established = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, established, id)
	if err != nil {
		return fmt.Errorf("failed to update target trust: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("replication target not found: %s", id)
	}

	return nil
}

// UpsertProtectedVM inserts or updates a protected VM record.
func (s *SQLiteStore) UpsertProtectedVM(ctx context.Context, vm *orchestrator.ProtectedVM) error {
	query := `
		INSERT INTO protected_vms (
			id, group_id, name, storage_bytes, dr_shell_vm_created,
			replication_status, failover_ready
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			storage_bytes = excluded.storage_bytes,
			dr_shell_vm_created = excluded.dr_shell_vm_created,
			replication_status = excluded.replication_status,
			failover_ready = excluded.failover_ready
	`

	_, err := s.db.ExecContext(ctx, query,
		vm.ID,
		vm.GroupID,
		vm.Name,
		vm.StorageBytes,
		vm.DRShellVMCreated,
		vm.ReplicationStatus,
		vm.FailoverReady,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert protected vm: %w", err)
	}

	return nil
}

// ListVMsByGroup lists the member VMs of a protection group.
func (s *SQLiteStore) ListVMsByGroup(ctx context.Context, groupID string) ([]orchestrator.ProtectedVM, error) {
	query := `
		SELECT id, group_id, name, storage_bytes, dr_shell_vm_created,
			   replication_status, failover_ready
		FROM protected_vms
		WHERE group_id = ?
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list protected vms: %w", err)
	}
	defer rows.Close()

	vms := []orchestrator.ProtectedVM{}
	for rows.Next() {
		vm := orchestrator.ProtectedVM{}
		err := rows.Scan(
			&vm.ID,
			&vm.GroupID,
			&vm.Name,
			&vm.StorageBytes,
			&vm.DRShellVMCreated,
			&vm.ReplicationStatus,
			&vm.FailoverReady,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan protected vm: %w", err)
		}
		vms = append(vms, vm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating protected vms: %w", err)
	}

	return vms, nil
}

const eventColumns = `id, group_id, failover_type, status, job_id, started_at,
	   completed_at, test_duration_minutes, cleanup_scheduled_at, error_message`

func scanEvent(row interface{ Scan(...interface{}) error }) (*orchestrator.FailoverEvent, error) {
	e := &orchestrator.FailoverEvent{}
	err := row.Scan(
		&e.ID,
		&e.GroupID,
		&e.FailoverType,
		&e.Status,
		&e.JobID,
		&e.StartedAt,
		&e.CompletedAt,
		&e.TestDurationMinutes,
		&e.CleanupScheduledAt,
		&e.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// CreateFailoverEvent persists a new failover event record.
func (s *SQLiteStore) CreateFailoverEvent(ctx context.Context, event *orchestrator.FailoverEvent) error {
	query := `
		INSERT INTO failover_events (
			id, group_id, failover_type, status, job_id, started_at,
			completed_at, test_duration_minutes, cleanup_scheduled_at, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.GroupID,
		event.FailoverType,
		event.Status,
		event.JobID,
		event.StartedAt,
		event.CompletedAt,
		event.TestDurationMinutes,
		event.CleanupScheduledAt,
		event.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to create failover event: %w", err)
	}

	return nil
}

// GetFailoverEvent retrieves a failover event by ID.
func (s *SQLiteStore) GetFailoverEvent(ctx context.Context, id string) (*orchestrator.FailoverEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM failover_events WHERE id = ?`

	e, err := scanEvent(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("failover event not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get failover event: %w", err)
	}

	return e, nil
}

// UpdateFailoverEventStatus transitions an event's status. Terminal statuses
// also stamp completed_at.
func (s *SQLiteStore) UpdateFailoverEventStatus(ctx context.Context, id string, status orchestrator.FailoverEventStatus, errMsg string) error {
	query := `
		UPDATE failover_events
		SET status = ?, error_message = ?, completed_at = ?
		WHERE id = ?
	`

	var completedAt *time.Time
	if status.IsTerminal() {
		now := time.Now().UTC()
		completedAt = &now
	}

	result, err := s.db.ExecContext(ctx, query, status, errMsg, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update failover event status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("failover event not found: %s", id)
	}

	return nil
}

// ScheduleCleanup records the auto-cleanup deadline for a test failover.
func (s *SQLiteStore) ScheduleCleanup(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE failover_events SET cleanup_scheduled_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("failover event not found: %s", id)
	}

	return nil
}

// ActiveFailoverEvent returns the group's non-terminal failover event, if
// any. At most one exists at a time; it blocks new submissions.
func (s *SQLiteStore) ActiveFailoverEvent(ctx context.Context, groupID string) (*orchestrator.FailoverEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM failover_events
		WHERE group_id = ? AND status IN ('pending', 'in_progress', 'awaiting_commit')
		ORDER BY started_at DESC
		LIMIT 1
	`

	e, err := scanEvent(s.db.QueryRowContext(ctx, query, groupID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active failover event: %w", err)
	}

	return e, nil
}

// ListFailoverEventsByGroup lists a group's failover history, newest first.
func (s *SQLiteStore) ListFailoverEventsByGroup(ctx context.Context, groupID string, limit int) ([]*orchestrator.FailoverEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM failover_events
		WHERE group_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list failover events: %w", err)
	}
	defer rows.Close()

	events := []*orchestrator.FailoverEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan failover event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating failover events: %w", err)
	}

	return events, nil
}

// RecordSyncJob inserts or updates a background replication job record.
func (s *SQLiteStore) RecordSyncJob(ctx context.Context, job *orchestrator.SyncJob) error {
	query := `
		INSERT INTO sync_jobs (
			id, group_id, status, started_at, completed_at, bytes_transferred, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at,
			bytes_transferred = excluded.bytes_transferred,
			error_message = excluded.error_message
	`

	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.GroupID,
		job.Status,
		job.StartedAt,
		job.CompletedAt,
		job.BytesTransferred,
		job.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to record sync job: %w", err)
	}

	return nil
}

// ListRecentSyncJobs lists a group's recent replication jobs, newest first.
func (s *SQLiteStore) ListRecentSyncJobs(ctx context.Context, groupID string, limit int) ([]orchestrator.SyncJob, error) {
	query := `
		SELECT id, group_id, status, started_at, completed_at, bytes_transferred, error_message
		FROM sync_jobs
		WHERE group_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync jobs: %w", err)
	}
	defer rows.Close()

	jobs := []orchestrator.SyncJob{}
	for rows.Next() {
		j := orchestrator.SyncJob{}
		err := rows.Scan(
			&j.ID,
			&j.GroupID,
			&j.Status,
			&j.StartedAt,
			&j.CompletedAt,
			&j.BytesTransferred,
			&j.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync job: %w", err)
		}
		jobs = append(jobs, j)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync jobs: %w", err)
	}

	return jobs, nil
}

// DiagnosticsSnapshot assembles the read-only state the diagnostics engine
// evaluates for one group.
type DiagnosticsSnapshot struct {
	Group          *orchestrator.ProtectionGroup
	Target         *orchestrator.ReplicationTarget
	PartnerTarget  *orchestrator.ReplicationTarget
	VMs            []orchestrator.ProtectedVM
	RecentSyncJobs []orchestrator.SyncJob
}

// LoadDiagnosticsSnapshot reads everything the diagnostics engine needs for
// a group. A missing or unpaired target is not an error: the engine
// diagnoses those conditions itself.
func (s *SQLiteStore) LoadDiagnosticsSnapshot(ctx context.Context, groupID string, syncHistory int) (*DiagnosticsSnapshot, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	snap := &DiagnosticsSnapshot{Group: group}

	if target, err := s.GetTarget(ctx, group.TargetID); err == nil {
		snap.Target = target
		if target.PartnerTargetID != "" {
			if partner, err := s.GetTarget(ctx, target.PartnerTargetID); err == nil {
				snap.PartnerTarget = partner
			}
		}
	}

	snap.VMs, err = s.ListVMsByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	snap.RecentSyncJobs, err = s.ListRecentSyncJobs(ctx, groupID, syncHistory)
	if err != nil {
		return nil, err
	}

	return snap, nil
}
