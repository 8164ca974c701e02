package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cimillas/furniture-backoffice/internal/app"
	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/go-chi/chi/v5"
)

// SurveyService is the survey surface the HTTP layer needs.
type SurveyService interface {
	ListDeliverableWithoutSurvey(ctx context.Context) ([]domain.Order, error)
	CreateSurvey(ctx context.Context, in app.CreateSurveyInput) (domain.Survey, error)
	UpdateSurvey(ctx context.Context, surveyID string, patch domain.SurveyPatch) (domain.Survey, error)
	GetSurvey(ctx context.Context, surveyID string) (domain.Survey, error)
}

type surveyHandlers struct {
	svc SurveyService
}

func (h surveyHandlers) pending(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListDeliverableWithoutSurvey(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, newOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h surveyHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req createSurveyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, codeMissingRequiredField, errRequired("order_id").Error())
		return
	}

	survey, err := h.svc.CreateSurvey(r.Context(), app.CreateSurveyInput{
		OrderID:        req.OrderID,
		OrderScore:     req.OrderScore,
		DelivererScore: req.DelivererScore,
		Comment:        req.Comment,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSurveyResponse(survey))
}

func (h surveyHandlers) get(w http.ResponseWriter, r *http.Request) {
	survey, err := h.svc.GetSurvey(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSurveyResponse(survey))
}

func (h surveyHandlers) update(w http.ResponseWriter, r *http.Request) {
	fields, err := decodePatch(r, "order_score", "deliverer_score", "comment")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
		return
	}

	var patch domain.SurveyPatch
	for key, dst := range map[string]*domain.Optional[int]{
		"order_score":     &patch.OrderScore,
		"deliverer_score": &patch.DelivererScore,
	} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var v int
		if isNull(raw) || json.Unmarshal(raw, &v) != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, errField(key).Error())
			return
		}
		*dst = domain.Some(v)
	}
	if raw, ok := fields["comment"]; ok {
		var v string
		if !isNull(raw) {
			if err := json.Unmarshal(raw, &v); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, errField("comment").Error())
				return
			}
		}
		patch.Comment = domain.Some(v)
	}

	survey, err := h.svc.UpdateSurvey(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSurveyResponse(survey))
}

type createSurveyRequest struct {
	OrderID        string `json:"order_id"`
	OrderScore     int    `json:"order_score"`
	DelivererScore int    `json:"deliverer_score"`
	Comment        string `json:"comment"`
}

type surveyResponse struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"order_id"`
	OrderScore     int       `json:"order_score"`
	DelivererScore int       `json:"deliverer_score"`
	Comment        string    `json:"comment"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newSurveyResponse(s domain.Survey) surveyResponse {
	return surveyResponse{
		ID:             s.ID,
		OrderID:        s.OrderID,
		OrderScore:     s.OrderScore,
		DelivererScore: s.DelivererScore,
		Comment:        s.Comment,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}
