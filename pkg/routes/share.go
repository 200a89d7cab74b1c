package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/reqdrop/reqdrop/internal/database"
	"github.com/reqdrop/reqdrop/pkg/httputil"
	"github.com/reqdrop/reqdrop/pkg/services"
)

// maxUploadMemory bounds the multipart parser's in-memory buffering; larger
// parts spill to disk.
const maxUploadMemory = 32 << 20

type shareOut struct {
	Description string     `json:"description"`
	Status      string     `json:"status"`
	IsActive    bool       `json:"isActive"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}

func (a *API) getShare(w http.ResponseWriter, r *http.Request) {
	req, err := a.requests.GetByLink(r.Context(), chi.URLParam(r, "link"))
	if err != nil {
		if database.IsRecordNotFoundErr(err) {
			httputil.NewError(w, r, http.StatusNotFound, err)
		} else {
			httputil.NewError(w, r, http.StatusInternalServerError, err)
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, shareOut{
		Description: req.Description,
		Status:      req.Status,
		IsActive:    req.IsActive,
		ExpiresAt:   req.ExpiresAt,
		Deadline:    req.Deadline,
	})
}

func (a *API) uploadToShare(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		httputil.NewError(w, r, http.StatusBadRequest, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		httputil.NewError(w, r, http.StatusBadRequest, errors.New("no files provided"))
		return
	}

	inputs := make([]services.UploadInput, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			httputil.NewError(w, r, http.StatusBadRequest, err)
			return
		}
		defer f.Close()
		inputs = append(inputs, services.UploadInput{
			Filename: fh.Filename,
			Size:     fh.Size,
			Reader:   f,
		})
	}

	saved, err := a.uploads.Upload(r.Context(), chi.URLParam(r, "link"), inputs, time.Now().UTC())
	if err != nil {
		switch {
		case database.IsRecordNotFoundErr(err):
			httputil.NewError(w, r, http.StatusNotFound, err)
		case errors.Is(err, services.ErrRequestClosed):
			httputil.NewError(w, r, http.StatusGone, err)
		case errors.Is(err, services.ErrFileTooLarge),
			errors.Is(err, services.ErrStorageExceeded):
			httputil.NewError(w, r, http.StatusRequestEntityTooLarge, err)
		case errors.Is(err, services.ErrTooManyFiles):
			httputil.NewError(w, r, http.StatusBadRequest, err)
		default:
			httputil.NewError(w, r, http.StatusInternalServerError, err)
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, saved)
}
