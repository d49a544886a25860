package http

import (
	"net/http"

	"github.com/arcwell/identity/internal/identity/domain"
	"github.com/arcwell/identity/internal/identity/service"
	"github.com/arcwell/identity/pkg/httpx"
)

type OTPHandler struct {
	OTPService *service.OTPService
}

type otpRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

func (h *OTPHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	purpose, err := domain.ParseOTPPurpose(req.Purpose)
	if err != nil {
		writeServiceError(w, r, service.ValidationError("invalid otp purpose"))
		return
	}

	if err := h.OTPService.CreateAndSend(r.Context(), req.Email, purpose); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "otp sent"})
}

type otpVerifyRequest struct {
	Email   string `json:"email"`
	Code    string `json:"code"`
	Purpose string `json:"purpose"`
}

func (h *OTPHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req otpVerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	purpose, err := domain.ParseOTPPurpose(req.Purpose)
	if err != nil {
		writeServiceError(w, r, service.ValidationError("invalid otp purpose"))
		return
	}

	if err := h.OTPService.Verify(r.Context(), req.Email, req.Code, purpose); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "otp verified"})
}
