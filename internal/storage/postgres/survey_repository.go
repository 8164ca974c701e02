package postgres

import (
	"context"
	"errors"

	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const surveyColumns = `id, order_id, order_score, deliverer_score, comment, created_at, updated_at`

type SurveyRepository struct {
	conn
}

func NewSurveyRepository(pool *pgxpool.Pool) *SurveyRepository {
	return &SurveyRepository{conn: conn{pool: pool}}
}

func (r *SurveyRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// GetOrderForUpdate locks the order so two surveys for it cannot race.
func (r *SurveyRepository) GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error) {
	return getOrderForUpdate(ctx, r.conn, orderID)
}

// GetSurveyByOrder returns nil when the order has no survey yet.
func (r *SurveyRepository) GetSurveyByOrder(ctx context.Context, orderID string) (*domain.Survey, error) {
	s, err := scanSurvey(r.queryRow(ctx, `SELECT `+surveyColumns+` FROM surveys WHERE order_id = $1`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, nil
		}
		return nil, wrap("get survey by order", err)
	}
	return &s, nil
}

func (r *SurveyRepository) GetSurvey(ctx context.Context, surveyID string) (domain.Survey, error) {
	s, err := scanSurvey(r.queryRow(ctx, `SELECT `+surveyColumns+` FROM surveys WHERE id = $1`, surveyID))
	if err != nil {
		return domain.Survey{}, mapSurveyLookup("get survey", err)
	}
	return s, nil
}

func (r *SurveyRepository) GetSurveyForUpdate(ctx context.Context, surveyID string) (domain.Survey, error) {
	s, err := scanSurvey(r.queryRow(ctx, `SELECT `+surveyColumns+` FROM surveys WHERE id = $1 FOR UPDATE`, surveyID))
	if err != nil {
		return domain.Survey{}, mapSurveyLookup("lock survey", err)
	}
	return s, nil
}

func (r *SurveyRepository) CreateSurvey(ctx context.Context, survey domain.Survey) error {
	const stmt = `
INSERT INTO surveys (` + surveyColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt, survey.ID, survey.OrderID, survey.OrderScore, survey.DelivererScore,
		survey.Comment, survey.CreatedAt, survey.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrSurveyAlreadyExists
		case isForeignKeyViolation(err, ""), isInvalidUUID(err):
			return domain.ErrOrderNotFound
		}
		return wrap("create survey", err)
	}
	return nil
}

func (r *SurveyRepository) UpdateSurvey(ctx context.Context, survey domain.Survey) error {
	const stmt = `
UPDATE surveys
SET order_score = $2, deliverer_score = $3, comment = $4, updated_at = $5
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, survey.ID, survey.OrderScore, survey.DelivererScore, survey.Comment, survey.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrSurveyNotFound
		}
		return wrap("update survey", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSurveyNotFound
	}
	return nil
}

// ListDeliveredWithoutSurvey returns delivered orders that have no survey,
// newest first.
func (r *SurveyRepository) ListDeliveredWithoutSurvey(ctx context.Context) ([]domain.Order, error) {
	const query = `
SELECT o.id, o.client_id, o.state, o.total_cost, o.deposit, o.description, o.estimated_delivery, o.created_at, o.updated_at
FROM orders o
WHERE o.state = $1
  AND NOT EXISTS (SELECT 1 FROM surveys s WHERE s.order_id = o.id)
ORDER BY o.created_at DESC, o.id DESC`

	return listOrders(ctx, r.conn, "list delivered without survey", query, domain.StateDelivered)
}

func scanSurvey(row pgx.Row) (domain.Survey, error) {
	var s domain.Survey
	err := row.Scan(&s.ID, &s.OrderID, &s.OrderScore, &s.DelivererScore, &s.Comment, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func mapSurveyLookup(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
		return domain.ErrSurveyNotFound
	}
	return wrap(op, err)
}
