package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lettercast/campaign-engine/internal/domain"
)

const campaignColumns = `id, subject, content, status, scheduled_at, sent_at,
	       recipients_count, created_at, updated_at`

type pgCampaignRepository struct {
	pool *pgxpool.Pool
}

// NewPgCampaignRepository returns a CampaignRepository backed by PostgreSQL.
func NewPgCampaignRepository(pool *pgxpool.Pool) CampaignRepository {
	return &pgCampaignRepository{pool: pool}
}

func (r *pgCampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO campaigns
			(id, subject, content, status, scheduled_at, sent_at,
			 recipients_count, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.Subject, c.Content, c.Status, c.ScheduledAt, c.SentAt,
		c.RecipientsCount, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (r *pgCampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns WHERE id = $1`, id)

	c, err := scanCampaign(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return c, err
}

func (r *pgCampaignRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Campaign, int, error) {
	where := ""
	args := []any{}
	if f.Status != nil {
		where = " WHERE status = $1"
		args = append(args, *f.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM campaigns"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	offset := (f.Page - 1) * f.Limit
	args = append(args, f.Limit, offset)
	query := fmt.Sprintf(`
		SELECT `+campaignColumns+`
		FROM campaigns%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns, err := scanCampaigns(rows)
	return campaigns, total, err
}

func (r *pgCampaignRepository) FindByStatus(ctx context.Context, status domain.Status) ([]*domain.Campaign, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns WHERE status = $1
		ORDER BY created_at ASC`, status)
	if err != nil {
		return nil, fmt.Errorf("find campaigns by status: %w", err)
	}
	defer rows.Close()
	return scanCampaigns(rows)
}

func (r *pgCampaignRepository) MarkScheduled(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns
		SET status = 'scheduled', scheduled_at = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ('draft', 'scheduled')`, at, id)
	if err != nil {
		return fmt.Errorf("mark scheduled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionConflict(ctx, id)
	}
	return nil
}

func (r *pgCampaignRepository) ClearSchedule(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns
		SET status = 'draft', scheduled_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'`, id)
	if err != nil {
		return fmt.Errorf("clear schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionConflict(ctx, id)
	}
	return nil
}

func (r *pgCampaignRepository) BeginSending(ctx context.Context, id uuid.UUID, recipientsCount int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns
		SET status = 'sending', recipients_count = $1, updated_at = NOW()
		WHERE id = $2 AND status NOT IN ('sending', 'sent', 'archived')`,
		recipientsCount, id)
	if err != nil {
		return fmt.Errorf("begin sending: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionConflict(ctx, id)
	}
	return nil
}

func (r *pgCampaignRepository) Finalize(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns
		SET status = 'sent', sent_at = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'sending'`, sentAt, id)
	if err != nil {
		return false, fmt.Errorf("finalize campaign: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgCampaignRepository) Archive(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns
		SET status = 'archived', updated_at = NOW()
		WHERE id = $1 AND status IN ('draft', 'sent')`, id)
	if err != nil {
		return fmt.Errorf("archive campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionConflict(ctx, id)
	}
	return nil
}

// transitionConflict maps a zero-rows-affected conditional update to the
// sentinel error describing why the transition was refused.
func (r *pgCampaignRepository) transitionConflict(ctx context.Context, id uuid.UUID) error {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return err // ErrNotFound or a storage error
	}
	switch c.Status {
	case domain.StatusSending:
		return domain.ErrAlreadySending
	case domain.StatusSent:
		return domain.ErrAlreadySent
	default:
		return domain.ErrInvalidStatus
	}
}

// ---- helpers ----

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var c domain.Campaign
	err := row.Scan(
		&c.ID, &c.Subject, &c.Content, &c.Status, &c.ScheduledAt, &c.SentAt,
		&c.RecipientsCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCampaigns(rows pgx.Rows) ([]*domain.Campaign, error) {
	var result []*domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
