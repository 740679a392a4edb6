package api

import (
	"net/http"

	"github.com/hackgods/clinic-booking/internal/clinic"
)

func createAppointmentHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decodeBody(w, r, &req) {
			return
		}

		appt, err := svc.BookAppointment(r.Context(), clinic.BookingRequest{
			PatientID: req.PatientID,
			DoctorID:  req.DoctorID,
			Date:      req.Date,
			Time:      req.Time,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
	}
}

// listAppointmentsHandler scopes the list by ?role=. Anything other than patient or doctor
// gets the unscoped admin view.
func listAppointmentsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := idParam(w, r, "id", "id")
		if !ok {
			return
		}
		role := clinic.Role(r.URL.Query().Get("role"))

		list, err := svc.ListAppointments(r.Context(), userID, role)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := make([]AppointmentViewResponse, 0, len(list))
		for _, v := range list {
			resp = append(resp, toAppointmentViewResponse(v))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getAppointmentHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "id")
		if !ok {
			return
		}

		v, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentViewResponse(*v))
	}
}

func updateStatusHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "id")
		if !ok {
			return
		}

		var req UpdateStatusRequest
		if !decodeBody(w, r, &req) {
			return
		}

		appt, err := svc.SetStatus(r.Context(), id, clinic.AppointmentStatus(req.Status), req.Notes)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func createPaymentHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePaymentRequest
		if !decodeBody(w, r, &req) {
			return
		}

		p, err := svc.CreatePayment(r.Context(), req.AppointmentID, req.Amount)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, PaymentResponse{
			ID:            p.ID,
			AppointmentID: p.AppointmentID,
			Amount:        p.Amount,
			Status:        string(p.Status),
			TransactionID: p.TransactionID,
			CreatedAt:     p.CreatedAt,
		})
	}
}

func statsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.ComputeStats(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, StatsResponse{
			TotalPatients:     st.TotalPatients,
			TotalDoctors:      st.TotalDoctors,
			TotalAppointments: st.TotalAppointments,
			Revenue:           st.Revenue,
		})
	}
}
