package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/reqdrop/reqdrop/internal/auth"
	"github.com/reqdrop/reqdrop/internal/database"
	"github.com/reqdrop/reqdrop/pkg/httputil"
	"github.com/reqdrop/reqdrop/pkg/models"
	"github.com/reqdrop/reqdrop/pkg/services"
)

type quotaDetails struct {
	Tier             string `json:"tier"`
	Limit            int    `json:"limit"`
	CurrentCount     int    `json:"currentCount"`
	UpgradeWouldHelp bool   `json:"upgradeWouldHelp"`
}

func (a *API) createRequest(w http.ResponseWriter, r *http.Request) {
	var in services.CreateRequestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.NewError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := a.validate.Struct(&in); err != nil {
		httputil.NewError(w, r, http.StatusBadRequest, err)
		return
	}

	ident := services.Identity{
		UserID: auth.GetUser(r.Context()),
		Email:  in.RecipientEmail,
	}

	req, err := a.requests.Create(r.Context(), ident, &in, time.Now().UTC())
	if err != nil {
		var quotaErr *services.QuotaExceededError
		if errors.As(err, &quotaErr) {
			httputil.NewErrorWithDetails(w, http.StatusTooManyRequests, quotaErr.Error(), quotaDetails{
				Tier:             string(quotaErr.Decision.Tier),
				Limit:            quotaErr.Decision.Limits.MaxRequestsPerMonth,
				CurrentCount:     quotaErr.Decision.CurrentCount,
				UpgradeWouldHelp: quotaErr.Decision.UpgradeWouldHelp,
			})
			return
		}
		// Admission fails closed: infrastructure trouble rejects creation.
		httputil.NewError(w, r, http.StatusServiceUnavailable, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, req)
}

func (a *API) listRequests(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUser(r.Context())
	if userID == 0 {
		httputil.NewError(w, r, http.StatusUnauthorized, errors.New("authentication required"))
		return
	}
	reqs, err := a.requests.ListByOwner(r.Context(), userID)
	if err != nil {
		httputil.NewError(w, r, http.StatusInternalServerError, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reqs)
}

// ownedRequest loads a request and enforces that the caller owns it.
func (a *API) ownedRequest(w http.ResponseWriter, r *http.Request) *models.FileRequest {
	userID := auth.GetUser(r.Context())
	if userID == 0 {
		httputil.NewError(w, r, http.StatusUnauthorized, errors.New("authentication required"))
		return nil
	}
	req, err := a.requests.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if database.IsRecordNotFoundErr(err) {
			httputil.NewError(w, r, http.StatusNotFound, err)
		} else {
			httputil.NewError(w, r, http.StatusInternalServerError, err)
		}
		return nil
	}
	if req.UserID == nil || *req.UserID != userID {
		httputil.NewError(w, r, http.StatusNotFound, database.ErrNotFound)
		return nil
	}
	return req
}

func (a *API) getRequest(w http.ResponseWriter, r *http.Request) {
	req := a.ownedRequest(w, r)
	if req == nil {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

func (a *API) completeRequest(w http.ResponseWriter, r *http.Request) {
	req := a.ownedRequest(w, r)
	if req == nil {
		return
	}
	if err := a.requests.Complete(r.Context(), req.ID); err != nil {
		httputil.NewError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listRequestFiles(w http.ResponseWriter, r *http.Request) {
	req := a.ownedRequest(w, r)
	if req == nil {
		return
	}
	files, err := a.requests.ListFiles(r.Context(), req.ID)
	if err != nil {
		httputil.NewError(w, r, http.StatusInternalServerError, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, files)
}

func (a *API) integrityCheck(w http.ResponseWriter, r *http.Request) {
	if auth.GetUser(r.Context()) == 0 {
		httputil.NewError(w, r, http.StatusUnauthorized, errors.New("authentication required"))
		return
	}
	report, err := a.integrity.Check(r.Context())
	if err != nil {
		httputil.NewError(w, r, http.StatusInternalServerError, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
