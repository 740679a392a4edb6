package api

import (
	"net/http"

	"github.com/hackgods/clinic-booking/internal/clinic"
)

func registerHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if !decodeBody(w, r, &req) {
			return
		}

		u, err := svc.Register(r.Context(), req.toRegistration())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toUserResponse(*u))
	}
}

func loginHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !decodeBody(w, r, &req) {
			return
		}

		profile, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toProfileResponse(*profile))
	}
}

func listDoctorsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.ListDoctors(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := make([]DoctorResponse, 0, len(doctors))
		for _, d := range doctors {
			resp = append(resp, toDoctorResponse(d))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getDoctorHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "id")
		if !ok {
			return
		}

		d, err := svc.GetDoctor(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toDoctorResponse(*d))
	}
}

func updateDoctorHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "id")
		if !ok {
			return
		}

		var req UpdateDoctorRequest
		if !decodeBody(w, r, &req) {
			return
		}

		d, err := svc.UpdateDoctor(r.Context(), id, req.toUpdate())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toDoctorResponse(*d))
	}
}

func deleteDoctorHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "id")
		if !ok {
			return
		}

		if err := svc.DeleteDoctor(r.Context(), id); err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, MessageResponse{Message: "doctor deleted"})
	}
}

func updatePatientHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := idParam(w, r, "userID", "user_id")
		if !ok {
			return
		}

		var req UpdatePatientRequest
		if !decodeBody(w, r, &req) {
			return
		}

		err := svc.UpdatePatient(r.Context(), userID, clinic.PatientUpdate{
			Name:       req.Name,
			Phone:      req.Phone,
			Age:        req.Age,
			Gender:     req.Gender,
			BloodGroup: req.BloodGroup,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, MessageResponse{Message: "profile updated"})
	}
}

func deleteUserHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id", "id")
		if !ok {
			return
		}

		if err := svc.DeleteUser(r.Context(), id); err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, MessageResponse{Message: "user deleted"})
	}
}
