package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amelfeddag/SanoX-public/internal/appointment"
)

// BookingService is the appointment use-case surface the handlers need.
type BookingService interface {
	GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time, durationMinutes int) ([]appointment.Slot, error)
	Book(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error)
	Confirm(ctx context.Context, doctorID, appointmentID uuid.UUID, notes string) (*appointment.Appointment, error)
	Reject(ctx context.Context, doctorID, appointmentID uuid.UUID, reason string) (*appointment.Appointment, error)
	Cancel(ctx context.Context, patientID, appointmentID uuid.UUID, reason string) (*appointment.Appointment, error)
	Complete(ctx context.Context, doctorID, appointmentID uuid.UUID, notes, prescriptions string) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, actorID, appointmentID uuid.UUID) (*appointment.Appointment, error)
	ListPatientAppointments(ctx context.Context, patientID uuid.UUID, q appointment.ListQuery) (*appointment.AppointmentPage, error)
	ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID, q appointment.ListQuery) (*appointment.AppointmentPage, error)
	GetDoctorAvailability(ctx context.Context, doctorID uuid.UUID) ([]appointment.Window, error)
	UpdateDoctorAvailability(ctx context.Context, doctorID uuid.UUID, inputs []appointment.WindowInput) ([]appointment.Window, error)
}

var _ BookingService = (*appointment.Service)(nil)

type appointmentHandlers struct {
	svc BookingService
	log *zap.Logger
}

func (h *appointmentHandlers) availableSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := urlUUID(r, "doctorID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", err.Error())
		return
	}

	date, err := appointment.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date is required (format: YYYY-MM-DD)")
		return
	}

	duration, err := queryInt(r, "duration", appointment.DefaultDurationMinutes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_duration", err.Error())
		return
	}

	slots, err := h.svc.GetAvailableSlots(r.Context(), doctorID, date, duration)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	resp := AvailableSlotsResponse{
		DoctorID:  doctorID,
		Date:      appointment.FormatDate(date),
		DayOfWeek: appointment.DayName(date.Weekday()),
		Duration:  duration,
		Slots:     make([]SlotResponse, 0, len(slots)),
	}
	for _, s := range slots {
		resp.Slots = append(resp.Slots, SlotResponse{Time: s.Time.String(), Available: s.Available, Duration: s.Duration})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *appointmentHandlers) book(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req BookAppointmentRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	doctorID, _ := uuid.Parse(req.DoctorID)
	date, err := appointment.ParseDate(req.AppointmentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "appointment_date must be YYYY-MM-DD")
		return
	}
	at, err := appointment.ParseTimeOfDay(req.AppointmentTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time", "appointment_time must be HH:MM")
		return
	}

	in := appointment.BookRequest{
		PatientID:       p.ProfileID,
		DoctorID:        doctorID,
		Date:            date,
		Time:            at,
		DurationMinutes: appointment.DefaultDurationMinutes,
		UrgencyLevel:    appointment.MinUrgency,
		Notes:           req.Notes,
	}
	if req.DurationMinutes != nil {
		in.DurationMinutes = *req.DurationMinutes
	}
	if req.UrgencyLevel != nil {
		in.UrgencyLevel = *req.UrgencyLevel
	}
	if req.ConversationID != nil {
		id, _ := uuid.Parse(*req.ConversationID)
		in.ConversationID = &id
	}

	appt, err := h.svc.Book(r.Context(), in)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *appointmentHandlers) get(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", err.Error())
		return
	}

	appt, err := h.svc.GetAppointment(r.Context(), p.ProfileID, id)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func parseListQuery(r *http.Request) (appointment.ListQuery, error) {
	var q appointment.ListQuery
	var err error

	if raw := r.URL.Query().Get("status"); raw != "" {
		st := appointment.AppointmentStatus(raw)
		q.Status = &st
	}
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := appointment.ParseDate(raw)
		if err != nil {
			return q, err
		}
		q.Date = &d
	}
	if q.Page, err = queryInt(r, "page", 1); err != nil {
		return q, err
	}
	if q.Limit, err = queryInt(r, "limit", 0); err != nil {
		return q, err
	}
	return q, nil
}

func writePage(w http.ResponseWriter, page *appointment.AppointmentPage) {
	resp := AppointmentListResponse{
		Appointments: make([]AppointmentResponse, 0, len(page.Items)),
		Page:         page.Page,
		Limit:        page.Limit,
		Total:        page.Total,
	}
	for _, item := range page.Items {
		resp.Appointments = append(resp.Appointments, toDetailResponse(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *appointmentHandlers) listMine(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	page, err := h.svc.ListPatientAppointments(r.Context(), p.ProfileID, q)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writePage(w, page)
}

func (h *appointmentHandlers) listDoctor(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	page, err := h.svc.ListDoctorAppointments(r.Context(), p.ProfileID, q)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writePage(w, page)
}

// transitionHandler decodes body into a fresh T and applies fn for the caller.
func transitionHandler[T any](h *appointmentHandlers, fn func(ctx context.Context, actorID, id uuid.UUID, body T) (*appointment.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFrom(r.Context())
		id, err := urlUUID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", err.Error())
			return
		}

		var body T
		if err := decodeBody(r, &body, true); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		appt, err := fn(r.Context(), p.ProfileID, id, body)
		if err != nil {
			handleServiceError(w, r, h.log, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func (h *appointmentHandlers) confirm() http.HandlerFunc {
	return transitionHandler(h, func(ctx context.Context, actorID, id uuid.UUID, body ConfirmRequest) (*appointment.Appointment, error) {
		return h.svc.Confirm(ctx, actorID, id, body.Notes)
	})
}

func (h *appointmentHandlers) reject() http.HandlerFunc {
	return transitionHandler(h, func(ctx context.Context, actorID, id uuid.UUID, body ReasonRequest) (*appointment.Appointment, error) {
		return h.svc.Reject(ctx, actorID, id, body.Reason)
	})
}

func (h *appointmentHandlers) cancel() http.HandlerFunc {
	return transitionHandler(h, func(ctx context.Context, actorID, id uuid.UUID, body ReasonRequest) (*appointment.Appointment, error) {
		return h.svc.Cancel(ctx, actorID, id, body.Reason)
	})
}

func (h *appointmentHandlers) complete() http.HandlerFunc {
	return transitionHandler(h, func(ctx context.Context, actorID, id uuid.UUID, body CompleteRequest) (*appointment.Appointment, error) {
		return h.svc.Complete(ctx, actorID, id, body.Notes, body.Prescriptions)
	})
}

func (h *appointmentHandlers) getAvailability(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	windows, err := h.svc.GetDoctorAvailability(r.Context(), p.ProfileID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"availability": toWindowResponses(windows)})
}

func (h *appointmentHandlers) putAvailability(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req UpdateAvailabilityRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	inputs := make([]appointment.WindowInput, 0, len(req.Windows))
	for _, wr := range req.Windows {
		start, err := appointment.ParseTimeOfDay(wr.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "start_time must be HH:MM")
			return
		}
		end, err := appointment.ParseTimeOfDay(wr.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "end_time must be HH:MM")
			return
		}
		inputs = append(inputs, appointment.WindowInput{
			DayOfWeek: *wr.DayOfWeek,
			Start:     start,
			End:       end,
			Active:    wr.IsActive,
		})
	}

	windows, err := h.svc.UpdateDoctorAvailability(r.Context(), p.ProfileID, inputs)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"availability": toWindowResponses(windows)})
}
