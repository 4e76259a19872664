package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"crosspost-backend/internal/models"
)

type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

func (r *VideoRepo) Create(ctx context.Context, v *models.VideoAsset) error {
	v.ID = uuid.New()

	contentBytes := marshalOrEmptyObject(v.Content)
	postTypeBytes := marshalOrEmptyObject(v.PostTypes)
	configBytes := marshalOrEmptyArray(v.DistributionConfig)

	query := `INSERT INTO videos (id, user_id, project_id, storage_path, public_url, file_size,
			aspect_class, width, height, duration_seconds, status, transcription, platforms,
			post_types, content_json, distribution_config, metadata_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		v.ID, v.UserID, v.ProjectID, v.StoragePath, v.PublicURL, v.FileSize,
		v.AspectClass, v.Width, v.Height, v.Duration, v.Status, v.Transcription, v.Platforms,
		postTypeBytes, contentBytes, configBytes, contentBytes,
	).Scan(&v.CreatedAt)
}

func (r *VideoRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.VideoAsset, error) {
	v := &models.VideoAsset{}
	var postTypes, content, config []byte

	query := `SELECT id, user_id, project_id, storage_path, public_url, file_size, aspect_class,
			width, height, duration_seconds, status, transcription, platforms, post_types,
			content_json, distribution_config, scheduled_date, created_at
		FROM videos WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.UserID, &v.ProjectID, &v.StoragePath, &v.PublicURL, &v.FileSize, &v.AspectClass,
		&v.Width, &v.Height, &v.Duration, &v.Status, &v.Transcription, &v.Platforms, &postTypes,
		&content, &config, &v.ScheduledDate, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	json.Unmarshal(postTypes, &v.PostTypes)
	json.Unmarshal(content, &v.Content)
	json.Unmarshal(config, &v.DistributionConfig)
	return v, nil
}

func (r *VideoRepo) ListByUser(ctx context.Context, userID uuid.UUID, status string) ([]*models.VideoAsset, error) {
	query := `SELECT id, user_id, project_id, storage_path, public_url, file_size, aspect_class,
			width, height, duration_seconds, status, transcription, platforms, post_types,
			content_json, distribution_config, scheduled_date, created_at
		FROM videos WHERE user_id = $1`
	args := []interface{}{userID}

	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanVideos(rows)
}

func (r *VideoRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.VideoAsset, error) {
	query := `SELECT id, user_id, project_id, storage_path, public_url, file_size, aspect_class,
			width, height, duration_seconds, status, transcription, platforms, post_types,
			content_json, distribution_config, scheduled_date, created_at
		FROM videos WHERE project_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanVideos(rows)
}

// ListStatusesByProject feeds the project stats recomputation; it always
// reflects the current full set of the project's videos.
func (r *VideoRepo) ListStatusesByProject(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT status FROM videos WHERE project_id = $1", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// SaveDistribution rewrites the video's whole distribution field group:
// platform set, shared sub-types, shared content, the full config array
// and the legacy single-object metadata column kept for older readers.
func (r *VideoRepo) SaveDistribution(ctx context.Context, v *models.VideoAsset) error {
	contentBytes := marshalOrEmptyObject(v.Content)
	postTypeBytes := marshalOrEmptyObject(v.PostTypes)
	configBytes := marshalOrEmptyArray(v.DistributionConfig)

	_, err := r.pool.Exec(ctx,
		`UPDATE videos SET platforms = $1, post_types = $2, content_json = $3,
			distribution_config = $4, metadata_json = $5 WHERE id = $6`,
		v.Platforms, postTypeBytes, contentBytes, configBytes, contentBytes, v.ID,
	)
	return err
}

func (r *VideoRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, "UPDATE videos SET status = $1 WHERE id = $2", status, id)
	return err
}

func (r *VideoRepo) SetSchedule(ctx context.Context, id uuid.UUID, scheduledDate *time.Time) error {
	_, err := r.pool.Exec(ctx, "UPDATE videos SET scheduled_date = $1 WHERE id = $2", scheduledDate, id)
	return err
}

func (r *VideoRepo) UpdateTranscription(ctx context.Context, id uuid.UUID, transcription, status string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE videos SET transcription = $1, status = $2 WHERE id = $3",
		transcription, status, id,
	)
	return err
}

// UpdateMediaInfo records probed geometry and duration once extraction
// finishes; eligibility and sub-type derivation re-run off these values.
func (r *VideoRepo) UpdateMediaInfo(ctx context.Context, id uuid.UUID, width, height int, duration float64, aspectClass string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE videos SET width = $1, height = $2, duration_seconds = $3, aspect_class = $4 WHERE id = $5`,
		width, height, duration, aspectClass, id,
	)
	return err
}

// UpdateStorage fills in the file location once an import download has
// landed in storage.
func (r *VideoRepo) UpdateStorage(ctx context.Context, id uuid.UUID, storagePath, publicURL string, fileSize int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE videos SET storage_path = $1, public_url = $2, file_size = $3 WHERE id = $4`,
		storagePath, publicURL, fileSize, id,
	)
	return err
}

func (r *VideoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM videos WHERE id = $1", id)
	return err
}

type videoRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanVideos(rows videoRows) ([]*models.VideoAsset, error) {
	var videos []*models.VideoAsset
	for rows.Next() {
		v := &models.VideoAsset{}
		var postTypes, content, config []byte
		err := rows.Scan(
			&v.ID, &v.UserID, &v.ProjectID, &v.StoragePath, &v.PublicURL, &v.FileSize, &v.AspectClass,
			&v.Width, &v.Height, &v.Duration, &v.Status, &v.Transcription, &v.Platforms, &postTypes,
			&content, &config, &v.ScheduledDate, &v.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		json.Unmarshal(postTypes, &v.PostTypes)
		json.Unmarshal(content, &v.Content)
		json.Unmarshal(config, &v.DistributionConfig)
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func marshalOrEmptyObject(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return []byte("{}")
	}
	return b
}

func marshalOrEmptyArray(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return []byte("[]")
	}
	return b
}
