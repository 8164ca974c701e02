package app

import (
	"context"
	"errors"
	"time"

	"github.com/cimillas/furniture-backoffice/internal/clock"
	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/cimillas/furniture-backoffice/internal/events"
)

// SurveyService gates satisfaction surveys to delivered orders, one per order.
type SurveyService struct {
	repo  SurveyRepository
	clock clock.Clock
	settings
}

func NewSurveyService(repo SurveyRepository, clk clock.Clock, opts ...Option) *SurveyService {
	return &SurveyService{
		repo:     repo,
		clock:    clk,
		settings: applyOptions(opts),
	}
}

type CreateSurveyInput struct {
	OrderID        string
	OrderScore     int
	DelivererScore int
	Comment        string
}

// ListDeliverableWithoutSurvey returns delivered orders still waiting for a survey.
func (s *SurveyService) ListDeliverableWithoutSurvey(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.repo.ListDeliveredWithoutSurvey(ctx)
	if err != nil {
		s.logFailure(ctx, "list surveyable orders", err)
		return nil, err
	}
	return orders, nil
}

func (s *SurveyService) CreateSurvey(ctx context.Context, in CreateSurveyInput) (domain.Survey, error) {
	ctx, span := tracer.Start(ctx, "SurveyService.CreateSurvey")
	defer span.End()

	now := s.clock.Now().Truncate(time.Microsecond)
	survey := domain.Survey{
		ID:             newID(),
		OrderID:        in.OrderID,
		OrderScore:     in.OrderScore,
		DelivererScore: in.DelivererScore,
		Comment:        in.Comment,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := survey.Validate(); err != nil {
		return domain.Survey{}, err
	}

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(txCtx, in.OrderID)
		if err != nil {
			return err
		}
		if order.State != domain.StateDelivered {
			return domain.ErrOrderNotDelivered
		}
		existing, err := s.repo.GetSurveyByOrder(txCtx, in.OrderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrSurveyAlreadyExists
		}
		if err := s.repo.CreateSurvey(txCtx, survey); err != nil {
			return err
		}
		return s.outbox.Enqueue(txCtx, events.SurveyCreated(survey))
	})
	if err != nil {
		s.logFailure(ctx, "create survey", err)
		return domain.Survey{}, err
	}

	s.recorder.SurveyCreated()
	s.logger.InfoContext(ctx, "survey created", "survey_id", survey.ID, "order_id", survey.OrderID)
	return survey, nil
}

// UpdateSurvey applies a partial update. The order state is not re-checked.
func (s *SurveyService) UpdateSurvey(ctx context.Context, surveyID string, patch domain.SurveyPatch) (domain.Survey, error) {
	var result domain.Survey
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		survey, err := s.repo.GetSurveyForUpdate(txCtx, surveyID)
		if err != nil {
			return err
		}
		patch.Apply(&survey)
		if err := survey.Validate(); err != nil {
			return err
		}
		survey.UpdatedAt = s.clock.Now().Truncate(time.Microsecond)
		if err := s.repo.UpdateSurvey(txCtx, survey); err != nil {
			return err
		}
		result = survey
		return nil
	})
	if err != nil {
		s.logFailure(ctx, "update survey", err)
		return domain.Survey{}, err
	}
	return result, nil
}

func (s *SurveyService) GetSurvey(ctx context.Context, surveyID string) (domain.Survey, error) {
	survey, err := s.repo.GetSurvey(ctx, surveyID)
	if err != nil && !errors.Is(err, domain.ErrSurveyNotFound) {
		s.logFailure(ctx, "get survey", err)
	}
	return survey, err
}
