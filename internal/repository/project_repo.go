package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"crosspost-backend/internal/models"
)

type ProjectRepo struct {
	pool *pgxpool.Pool
}

func NewProjectRepo(pool *pgxpool.Pool) *ProjectRepo {
	return &ProjectRepo{pool: pool}
}

func (r *ProjectRepo) Create(ctx context.Context, p *models.Project) error {
	p.ID = uuid.New()

	statsBytes, _ := json.Marshal(p.Stats)

	query := `INSERT INTO projects (id, user_id, name, client_name, agency_name, stats_json)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		p.ID, p.UserID, p.Name, p.ClientName, p.AgencyName, statsBytes,
	).Scan(&p.CreatedAt)
}

func (r *ProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p := &models.Project{}
	var stats []byte

	query := `SELECT id, user_id, name, client_name, agency_name, brief_text, stats_json, created_at
		FROM projects WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.UserID, &p.Name, &p.ClientName, &p.AgencyName, &p.BriefText, &stats, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	json.Unmarshal(stats, &p.Stats)
	return p, nil
}

func (r *ProjectRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	query := `SELECT id, user_id, name, client_name, agency_name, brief_text, stats_json, created_at
		FROM projects WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p := &models.Project{}
		var stats []byte
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.ClientName, &p.AgencyName, &p.BriefText, &stats, &p.CreatedAt); err != nil {
			return nil, err
		}
		json.Unmarshal(stats, &p.Stats)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateStats rewrites the whole cached snapshot.
func (r *ProjectRepo) UpdateStats(ctx context.Context, projectID uuid.UUID, stats models.ProjectStats) error {
	statsBytes, _ := json.Marshal(stats)
	_, err := r.pool.Exec(ctx, "UPDATE projects SET stats_json = $1 WHERE id = $2", statsBytes, projectID)
	return err
}

func (r *ProjectRepo) UpdateBrief(ctx context.Context, projectID uuid.UUID, briefText string) error {
	_, err := r.pool.Exec(ctx, "UPDATE projects SET brief_text = $1 WHERE id = $2", briefText, projectID)
	return err
}

func (r *ProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM projects WHERE id = $1", id)
	return err
}
