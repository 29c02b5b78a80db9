package httpx

import (
	"net"
	"net/http"

	"github.com/b0vik/subgencluster-api-server/internal/domain/model"
	"github.com/b0vik/subgencluster-api-server/internal/service"
)

// AccountHandlers provides HTTP handlers for account registration.
type AccountHandlers struct {
	Svc *service.AuthService
}

type registerRequest struct {
	Username string `json:"username"`
}

// registerResponse carries the API key exactly once, at registration time.
type registerResponse struct {
	Username string `json:"username"`
	APIKey   string `json:"api_key"`
}

// Register handles account creation and API key issuance.
func (h *AccountHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	account, err := h.Svc.Register(r.Context(), &model.CreateAccountRequest{
		Username:       req.Username,
		RegisteredFrom: remoteHost(r),
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, registerResponse{
		Username: account.Username,
		APIKey:   account.APIKey,
	})
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
