package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/amelfeddag/SanoX-public/internal/appointment"
	"github.com/amelfeddag/SanoX-public/internal/review"
)

type BookAppointmentRequest struct {
	DoctorID        string  `json:"doctor_id" validate:"required,uuid"`
	AppointmentDate string  `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	AppointmentTime string  `json:"appointment_time" validate:"required"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,min=1,max=480"`
	UrgencyLevel    *int    `json:"urgency_level" validate:"omitempty,min=1,max=5"`
	Notes           string  `json:"notes" validate:"max=2000"`
	ConversationID  *string `json:"conversation_id" validate:"omitempty,uuid"`
}

type ConfirmRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type CompleteRequest struct {
	Notes         string `json:"notes" validate:"max=4000"`
	Prescriptions string `json:"prescriptions" validate:"max=4000"`
}

type WindowRequest struct {
	DayOfWeek *int   `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	IsActive  *bool  `json:"is_active"`
}

type UpdateAvailabilityRequest struct {
	Windows []WindowRequest `json:"availability" validate:"required,dive"`
}

type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	ConversationID  *uuid.UUID `json:"conversation_id,omitempty"`
	AppointmentDate string     `json:"appointment_date"`
	AppointmentTime string     `json:"appointment_time"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          string     `json:"status"`
	UrgencyLevel    int        `json:"urgency_level"`
	Notes           *string    `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DoctorName      string     `json:"doctor_name,omitempty"`
	Specialty       *string    `json:"specialty,omitempty"`
	PatientName     string     `json:"patient_name,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		ConversationID:  a.ConversationID,
		AppointmentDate: appointment.FormatDate(a.Date),
		AppointmentTime: a.Time.String(),
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		UrgencyLevel:    a.UrgencyLevel,
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func toDetailResponse(d appointment.AppointmentDetail) AppointmentResponse {
	resp := toAppointmentResponse(&d.Appointment)
	if d.Doctor != nil {
		resp.DoctorName = d.Doctor.DisplayName()
		resp.Specialty = d.Doctor.Specialty
	}
	if d.Patient != nil {
		resp.PatientName = d.Patient.Name
	}
	return resp
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Page         int                   `json:"page"`
	Limit        int                   `json:"limit"`
	Total        int                   `json:"total"`
}

type SlotResponse struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Duration  int    `json:"duration"`
}

type AvailableSlotsResponse struct {
	DoctorID  uuid.UUID      `json:"doctor_id"`
	Date      string         `json:"date"`
	DayOfWeek string         `json:"day_of_week"`
	Duration  int            `json:"duration"`
	Slots     []SlotResponse `json:"available_slots"`
}

type WindowResponse struct {
	ID        uuid.UUID `json:"id"`
	DayOfWeek int       `json:"day_of_week"`
	DayName   string    `json:"day_name"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	IsActive  bool      `json:"is_active"`
}

func toWindowResponses(windows []appointment.Window) []WindowResponse {
	out := make([]WindowResponse, 0, len(windows))
	for _, w := range windows {
		out = append(out, WindowResponse{
			ID:        w.ID,
			DayOfWeek: int(w.DayOfWeek),
			DayName:   appointment.DayName(w.DayOfWeek),
			StartTime: w.Start.String(),
			EndTime:   w.End.String(),
			IsActive:  w.Active,
		})
	}
	return out
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type DoctorResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Name      string    `json:"name"`
	Specialty *string   `json:"specialty,omitempty"`
}

type DoctorListResponse struct {
	Doctors []DoctorResponse `json:"doctors"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
	Total   int              `json:"total"`
}

type SpecialtiesResponse struct {
	Specialties []string `json:"specialties"`
}

type CreateReviewRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	Rating        int    `json:"rating" validate:"required,min=1,max=5"`
	Comment       string `json:"comment" validate:"max=2000"`
	IsAnonymous   bool   `json:"is_anonymous"`
}

type UpdateReviewRequest struct {
	Rating      *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment     *string `json:"comment" validate:"omitempty,max=2000"`
	IsAnonymous *bool   `json:"is_anonymous"`
}

type RespondReviewRequest struct {
	Response string `json:"response" validate:"required,max=1000"`
}

type ReviewResponse struct {
	ID              uuid.UUID  `json:"id"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	AppointmentID   uuid.UUID  `json:"appointment_id"`
	Rating          int        `json:"rating"`
	Comment         *string    `json:"comment,omitempty"`
	IsAnonymous     bool       `json:"is_anonymous"`
	ReviewerName    string     `json:"reviewer_name"`
	DoctorName      string     `json:"doctor_name,omitempty"`
	AppointmentDate string     `json:"appointment_date,omitempty"`
	DoctorResponse  *string    `json:"doctor_response,omitempty"`
	RespondedAt     *time.Time `json:"responded_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toReviewResponse(r *review.Review) ReviewResponse {
	resp := ReviewResponse{
		ID:             r.ID,
		DoctorID:       r.DoctorID,
		AppointmentID:  r.AppointmentID,
		Rating:         r.Rating,
		Comment:        r.Comment,
		IsAnonymous:    r.Anonymous,
		ReviewerName:   r.ReviewerName(),
		DoctorName:     r.DoctorName,
		DoctorResponse: r.DoctorResponse,
		RespondedAt:    r.RespondedAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if !r.AppointmentDate.IsZero() {
		resp.AppointmentDate = appointment.FormatDate(r.AppointmentDate)
	}
	return resp
}

type ReviewSummaryResponse struct {
	TotalReviews       int         `json:"total_reviews"`
	AverageRating      float64     `json:"average_rating"`
	RatingDistribution map[int]int `json:"rating_distribution"`
}

func toSummaryResponse(s review.Summary) ReviewSummaryResponse {
	return ReviewSummaryResponse{
		TotalReviews:       s.Total,
		AverageRating:      s.Average,
		RatingDistribution: s.Distribution,
	}
}

type ReviewListResponse struct {
	DoctorName string                 `json:"doctor_name,omitempty"`
	Reviews    []ReviewResponse       `json:"reviews"`
	Summary    *ReviewSummaryResponse `json:"statistics,omitempty"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	Total      int                    `json:"total"`
}

func toReviewList(p review.Page) ReviewListResponse {
	resp := ReviewListResponse{
		Reviews: make([]ReviewResponse, 0, len(p.Items)),
		Page:    p.Page,
		Limit:   p.Limit,
		Total:   p.Total,
	}
	for i := range p.Items {
		resp.Reviews = append(resp.Reviews, toReviewResponse(&p.Items[i]))
	}
	return resp
}
