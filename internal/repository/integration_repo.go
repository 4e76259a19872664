package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"crosspost-backend/internal/models"
)

type IntegrationRepo struct {
	pool *pgxpool.Pool
}

func NewIntegrationRepo(pool *pgxpool.Pool) *IntegrationRepo {
	return &IntegrationRepo{pool: pool}
}

func (r *IntegrationRepo) Create(ctx context.Context, in *models.Integration) error {
	in.ID = uuid.New()

	credBytes, _ := json.Marshal(in.Credentials)
	var fallbackBytes []byte
	if in.FallbackCredentials != nil {
		fallbackBytes, _ = json.Marshal(in.FallbackCredentials)
	}

	query := `INSERT INTO integrations (id, user_id, platform, display_name, credentials, fallback_credentials)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		in.ID, in.UserID, in.Platform, in.DisplayName, credBytes, fallbackBytes,
	).Scan(&in.CreatedAt)
}

// Get resolves an account id to its integration, credentials included.
// This is the lookup the workflow uses during distribution.
func (r *IntegrationRepo) Get(ctx context.Context, id uuid.UUID) (*models.Integration, error) {
	in := &models.Integration{}
	var creds, fallback, stats []byte

	query := `SELECT id, user_id, platform, display_name, credentials, fallback_credentials,
			stats_json, stats_synced_at, created_at
		FROM integrations WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&in.ID, &in.UserID, &in.Platform, &in.DisplayName, &creds, &fallback,
		&stats, &in.StatsSynced, &in.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	json.Unmarshal(creds, &in.Credentials)
	if len(fallback) > 0 {
		in.FallbackCredentials = &models.Credentials{}
		json.Unmarshal(fallback, in.FallbackCredentials)
	}
	if len(stats) > 0 {
		in.Stats = &models.AccountStats{}
		json.Unmarshal(stats, in.Stats)
	}
	return in, nil
}

func (r *IntegrationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Integration, error) {
	query := `SELECT id, user_id, platform, display_name, credentials, fallback_credentials,
			stats_json, stats_synced_at, created_at
		FROM integrations WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var integrations []*models.Integration
	for rows.Next() {
		in := &models.Integration{}
		var creds, fallback, stats []byte
		err := rows.Scan(&in.ID, &in.UserID, &in.Platform, &in.DisplayName, &creds, &fallback,
			&stats, &in.StatsSynced, &in.CreatedAt)
		if err != nil {
			return nil, err
		}
		json.Unmarshal(creds, &in.Credentials)
		if len(fallback) > 0 {
			in.FallbackCredentials = &models.Credentials{}
			json.Unmarshal(fallback, in.FallbackCredentials)
		}
		if len(stats) > 0 {
			in.Stats = &models.AccountStats{}
			json.Unmarshal(stats, in.Stats)
		}
		integrations = append(integrations, in)
	}
	return integrations, rows.Err()
}

func (r *IntegrationRepo) ListAll(ctx context.Context) ([]*models.Integration, error) {
	rows, err := r.pool.Query(ctx, "SELECT id FROM integrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var integrations []*models.Integration
	for _, id := range ids {
		in, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, in)
	}
	return integrations, nil
}

func (r *IntegrationRepo) UpdateStats(ctx context.Context, id uuid.UUID, stats *models.AccountStats) error {
	statsBytes, _ := json.Marshal(stats)
	_, err := r.pool.Exec(ctx,
		"UPDATE integrations SET stats_json = $1, stats_synced_at = $2 WHERE id = $3",
		statsBytes, time.Now(), id,
	)
	return err
}

func (r *IntegrationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM integrations WHERE id = $1", id)
	return err
}
