package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/citywatch/incident_reporting_system/internal/geo"
	"github.com/citywatch/incident_reporting_system/internal/models"
	"github.com/citywatch/incident_reporting_system/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const incidentColumns = `
	id,
	type,
	description,
	latitude,
	longitude,
	severity,
	status,
	upvote_count,
	media_url,
	reporter_id,
	created_at,
	updated_at`

// sortColumns whitelists the exposed sort keys against SQL expressions.
// Severity sorts by rank, not alphabetically.
var sortColumns = map[string]string{
	models.SortByCreatedAt:   "created_at",
	models.SortByUpdatedAt:   "updated_at",
	models.SortByUpvoteCount: "upvote_count",
	models.SortBySeverity:    "CASE severity WHEN 'LOW' THEN 1 WHEN 'MEDIUM' THEN 2 WHEN 'HIGH' THEN 3 END",
}

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
	}
}

func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	err := row.Scan(
		&incident.ID,
		&incident.Type,
		&incident.Description,
		&incident.Latitude,
		&incident.Longitude,
		&incident.Severity,
		&incident.Status,
		&incident.UpvoteCount,
		&incident.MediaURL,
		&incident.ReporterID,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}

// Create inserts a new incident and fills in the generated id and timestamps.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (id, type, description, latitude, longitude, severity, status, media_url, reporter_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at;
	`
	if incident.ID == uuid.Nil {
		incident.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, query,
		incident.ID,
		incident.Type,
		incident.Description,
		incident.Latitude,
		incident.Longitude,
		incident.Severity,
		incident.Status,
		incident.MediaURL,
		incident.ReporterID,
	).Scan(&incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// GetByID returns an incident with its votes and notes attached.
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1;`

	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}

	if incident.Votes, err = r.listVotes(ctx, id); err != nil {
		return nil, err
	}
	if incident.Notes, err = r.listNotes(ctx, id); err != nil {
		return nil, err
	}
	return incident, nil
}

func (r *IncidentRepository) listVotes(ctx context.Context, incidentID uuid.UUID) ([]*models.Vote, error) {
	query := `
		SELECT id, incident_id, user_id, created_at
		FROM incident_votes
		WHERE incident_id = $1
		ORDER BY created_at;
	`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	votes := make([]*models.Vote, 0)
	for rows.Next() {
		vote := &models.Vote{}
		if err := rows.Scan(&vote.ID, &vote.IncidentID, &vote.UserID, &vote.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote row: %w", err)
		}
		votes = append(votes, vote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error vote iteration: %w", err)
	}
	return votes, nil
}

func (r *IncidentRepository) listNotes(ctx context.Context, incidentID uuid.UUID) ([]*models.AdminNote, error) {
	query := `
		SELECT id, incident_id, author_id, text, created_at
		FROM admin_notes
		WHERE incident_id = $1
		ORDER BY created_at;
	`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*models.AdminNote, 0)
	for rows.Next() {
		note := &models.AdminNote{}
		if err := rows.Scan(&note.ID, &note.IncidentID, &note.AuthorID, &note.Text, &note.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error note iteration: %w", err)
	}
	return notes, nil
}

// List returns one page of incidents matching the filter plus the total
// match count.
func (r *IncidentRepository) List(ctx context.Context, filter models.ListFilter) ([]*models.Incident, int64, error) {
	where := make([]string, 0, 7)
	args := make([]any, 0, 7)

	addCond := func(cond string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != "" {
		addCond("status = $%d", filter.Status)
	}
	if filter.Type != "" {
		addCond("type = $%d", models.NormalizeType(string(filter.Type)))
	}
	if filter.Severity != "" {
		addCond("severity = $%d", filter.Severity)
	}
	if filter.MinLat != nil {
		addCond("latitude >= $%d", *filter.MinLat)
	}
	if filter.MaxLat != nil {
		addCond("latitude <= $%d", *filter.MaxLat)
	}
	if filter.MinLon != nil {
		addCond("longitude >= $%d", *filter.MinLon)
	}
	if filter.MaxLon != nil {
		addCond("longitude <= $%d", *filter.MaxLon)
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM incidents` + whereClause
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count incidents: %w", err)
	}

	orderBy, ok := sortColumns[filter.SortBy]
	if !ok {
		orderBy = "created_at"
	}
	direction := "DESC"
	if filter.SortDir == models.SortAsc {
		direction = "ASC"
	}

	offset := (filter.Page - 1) * filter.PageSize
	args = append(args, filter.PageSize, offset)
	query := fmt.Sprintf(
		`SELECT %s FROM incidents%s ORDER BY %s %s LIMIT $%d OFFSET $%d;`,
		incidentColumns, whereClause, orderBy, direction, len(args)-1, len(args),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, total, nil
}

// FindRecentCandidates returns the most recent incidents of one type inside
// the bounding box and time window, skipping resolved and already-flagged
// ones. This is the coarse phase of duplicate detection; the service applies
// the precise distance check.
func (r *IncidentRepository) FindRecentCandidates(ctx context.Context, incidentType models.IncidentType, box geo.BoundingBox, since time.Time, limit int) ([]*models.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE
			UPPER(type) = $1
			AND created_at >= $2
			AND latitude BETWEEN $3 AND $4
			AND longitude BETWEEN $5 AND $6
			AND status NOT IN ($7, $8)
		ORDER BY created_at DESC
		LIMIT $9;
	`
	rows, err := r.db.Query(ctx, query,
		strings.ToUpper(string(incidentType)),
		since,
		box.MinLat, box.MaxLat,
		box.MinLon, box.MaxLon,
		models.StatusResolved, models.StatusFlagged,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicate candidates: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error candidate iteration: %w", err)
	}
	return incidents, nil
}

// UpdateStatus sets the status and bumps updated_at.
func (r *IncidentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.IncidentStatus) (*models.Incident, error) {
	query := `
		UPDATE incidents SET
			status = $1,
			updated_at = NOW()
		WHERE id = $2
		RETURNING ` + incidentColumns + `;
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, status, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update incident status: %w", err)
	}
	return incident, nil
}

// UpdateSeverity sets the severity and bumps updated_at.
func (r *IncidentRepository) UpdateSeverity(ctx context.Context, id uuid.UUID, severity models.IncidentSeverity) (*models.Incident, error) {
	query := `
		UPDATE incidents SET
			severity = $1,
			updated_at = NOW()
		WHERE id = $2
		RETURNING ` + incidentColumns + `;
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, severity, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update incident severity: %w", err)
	}
	return incident, nil
}

// AddNote attaches an admin note; the incident's updated_at is bumped so the
// annotation is visible in listings sorted by update time.
func (r *IncidentRepository) AddNote(ctx context.Context, note *models.AdminNote) error {
	query := `
		INSERT INTO admin_notes (id, incident_id, author_id, text)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at;
	`
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, query, note.ID, note.IncidentID, note.AuthorID, note.Text).Scan(&note.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to add admin note: %w", err)
	}
	return nil
}

// AddVote records an authenticated upvote: the vote row insert and the
// counter increment happen in a single transaction. A unique-constraint
// violation means a concurrent duplicate won the race; it is reported as
// alreadyVoted, never as a failure.
func (r *IncidentRepository) AddVote(ctx context.Context, incidentID, userID uuid.UUID) (*models.Incident, bool, error) {
	var exists bool
	checkQuery := `SELECT EXISTS (SELECT 1 FROM incident_votes WHERE incident_id = $1 AND user_id = $2);`
	if err := r.db.QueryRow(ctx, checkQuery, incidentID, userID).Scan(&exists); err != nil {
		return nil, false, fmt.Errorf("failed to check existing vote: %w", err)
	}
	if exists {
		incident, err := r.GetByID(ctx, incidentID)
		if err != nil {
			return nil, false, err
		}
		return incident, true, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin vote transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertQuery := `INSERT INTO incident_votes (id, incident_id, user_id) VALUES ($1, $2, $3);`
	if _, err := tx.Exec(ctx, insertQuery, uuid.New(), incidentID, userID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				// Lost the race to a concurrent vote from the same user.
				incident, getErr := r.GetByID(ctx, incidentID)
				if getErr != nil {
					return nil, false, getErr
				}
				return incident, true, nil
			case pgerrcode.ForeignKeyViolation:
				return nil, false, models.ErrNotFound
			}
		}
		return nil, false, fmt.Errorf("failed to insert vote: %w", err)
	}

	incident, err := r.incrementUpvoteTx(ctx, tx, incidentID)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to commit vote transaction: %w", err)
	}
	return incident, false, nil
}

// IncrementUpvote bumps the counter without recording a vote row. Anonymous
// upvotes are deliberately not deduplicated.
func (r *IncidentRepository) IncrementUpvote(ctx context.Context, incidentID uuid.UUID) (*models.Incident, error) {
	return r.incrementUpvoteTx(ctx, r.db, incidentID)
}

// querier covers both the pool and an open transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *IncidentRepository) incrementUpvoteTx(ctx context.Context, q querier, incidentID uuid.UUID) (*models.Incident, error) {
	query := `
		UPDATE incidents SET
			upvote_count = upvote_count + 1,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + incidentColumns + `;
	`
	incident, err := scanIncident(q.QueryRow(ctx, query, incidentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to increment upvote count: %w", err)
	}
	return incident, nil
}

// Delete removes an incident; votes and notes go with it via ON DELETE CASCADE.
func (r *IncidentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM incidents WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete incident: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Stats returns incident counts grouped by triage state.
func (r *IncidentRepository) Stats(ctx context.Context) (*models.Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3)
		FROM incidents;
	`
	stats := &models.Stats{}
	err := r.db.QueryRow(ctx, query,
		models.StatusReported,
		models.StatusInProgress,
		models.StatusResolved,
	).Scan(&stats.Total, &stats.Pending, &stats.Active, &stats.Resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to get incident stats: %w", err)
	}
	return stats, nil
}

// GetIncidentFromCache tries to fetch an incident from Redis.
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	key := fmt.Sprintf("incident:%s", id.String())
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache stores an incident in Redis with a 5-minute TTL.
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	key := fmt.Sprintf("incident:%s", incident.ID.String())
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, key, val, 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache drops an incident from the Redis cache.
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	key := fmt.Sprintf("incident:%s", id.String())
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}
