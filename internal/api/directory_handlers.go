package api

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/amelfeddag/SanoX-public/internal/appointment"
)

// DirectoryService lets callers find a doctor to book.
type DirectoryService interface {
	ListDoctors(ctx context.Context, q appointment.DoctorQuery) (*appointment.DoctorPage, error)
	ListSpecialties(ctx context.Context) ([]string, error)
}

var _ DirectoryService = (*appointment.Service)(nil)

type directoryHandlers struct {
	svc DirectoryService
	log *zap.Logger
}

func toDoctorResponse(d appointment.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:        d.ID,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Name:      d.DisplayName(),
		Specialty: d.Specialty,
	}
}

func (h *directoryHandlers) list(w http.ResponseWriter, r *http.Request) {
	q := appointment.DoctorQuery{
		Specialty: r.URL.Query().Get("specialty"),
		Search:    r.URL.Query().Get("search"),
	}
	var err error
	if q.Page, err = queryInt(r, "page", 1); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	if q.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	page, err := h.svc.ListDoctors(r.Context(), q)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	resp := DoctorListResponse{
		Doctors: make([]DoctorResponse, 0, len(page.Items)),
		Page:    page.Page,
		Limit:   page.Limit,
		Total:   page.Total,
	}
	for _, d := range page.Items {
		resp.Doctors = append(resp.Doctors, toDoctorResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *directoryHandlers) specialties(w http.ResponseWriter, r *http.Request) {
	specialties, err := h.svc.ListSpecialties(r.Context())
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, SpecialtiesResponse{Specialties: specialties})
}
