package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amelfeddag/SanoX-public/internal/review"
)

type ReviewService interface {
	Create(ctx context.Context, req review.CreateRequest) (*review.Review, error)
	ForDoctor(ctx context.Context, doctorID uuid.UUID, q review.Query) (*review.DoctorReviews, error)
	ByPatient(ctx context.Context, patientID uuid.UUID, page, limit int) (*review.Page, error)
	Summary(ctx context.Context, doctorID uuid.UUID) (review.Summary, error)
	Update(ctx context.Context, patientID, reviewID uuid.UUID, req review.UpdateRequest) (*review.Review, error)
	Delete(ctx context.Context, patientID, reviewID uuid.UUID) error
	Respond(ctx context.Context, doctorID, reviewID uuid.UUID, response string) (*review.Review, error)
}

var _ ReviewService = (*review.Service)(nil)

type reviewHandlers struct {
	svc ReviewService
	log *zap.Logger
}

func parseReviewQuery(r *http.Request) (review.Query, error) {
	q := review.Query{
		SortBy: review.SortField(r.URL.Query().Get("sort_by")),
		Order:  r.URL.Query().Get("sort_order"),
	}
	if r.URL.Query().Get("rating") != "" {
		rating, err := queryInt(r, "rating", 0)
		if err != nil {
			return q, err
		}
		q.Rating = &rating
	}
	var err error
	if q.Page, err = queryInt(r, "page", 1); err != nil {
		return q, err
	}
	if q.Limit, err = queryInt(r, "limit", 0); err != nil {
		return q, err
	}
	return q, nil
}

func (h *reviewHandlers) create(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req CreateReviewRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	appointmentID, _ := uuid.Parse(req.AppointmentID)
	created, err := h.svc.Create(r.Context(), review.CreateRequest{
		PatientID:     p.ProfileID,
		AppointmentID: appointmentID,
		Rating:        req.Rating,
		Comment:       req.Comment,
		Anonymous:     req.IsAnonymous,
	})
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReviewResponse(created))
}

// writeDoctorReviews pages one doctor's reviews together with their rating summary.
func (h *reviewHandlers) writeDoctorReviews(w http.ResponseWriter, r *http.Request, doctorID uuid.UUID) {
	q, err := parseReviewQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	out, err := h.svc.ForDoctor(r.Context(), doctorID, q)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	resp := toReviewList(out.Page)
	resp.DoctorName = out.DoctorName
	summary := toSummaryResponse(out.Summary)
	resp.Summary = &summary
	writeJSON(w, http.StatusOK, resp)
}

func (h *reviewHandlers) forDoctor(w http.ResponseWriter, r *http.Request) {
	doctorID, err := urlUUID(r, "doctorID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", err.Error())
		return
	}
	h.writeDoctorReviews(w, r, doctorID)
}

func (h *reviewHandlers) aboutMe(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	h.writeDoctorReviews(w, r, p.ProfileID)
}

func (h *reviewHandlers) summary(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	s, err := h.svc.Summary(r.Context(), p.ProfileID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(s))
}

func (h *reviewHandlers) mine(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	out, err := h.svc.ByPatient(r.Context(), p.ProfileID, page, limit)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewList(*out))
}

func (h *reviewHandlers) update(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_review_id", err.Error())
		return
	}

	var req UpdateReviewRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	updated, err := h.svc.Update(r.Context(), p.ProfileID, id, review.UpdateRequest{
		Rating:    req.Rating,
		Comment:   req.Comment,
		Anonymous: req.IsAnonymous,
	})
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewResponse(updated))
}

func (h *reviewHandlers) delete(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_review_id", err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), p.ProfileID, id); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *reviewHandlers) respond(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_review_id", err.Error())
		return
	}

	var req RespondReviewRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	updated, err := h.svc.Respond(r.Context(), p.ProfileID, id, req.Response)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toReviewResponse(updated))
}
