package handlers

import (
	"errors"
	"net/http"

	mediasvc "github.com/MakeNowJust/mastodon/internal/services/media"
	"github.com/MakeNowJust/mastodon/internal/transport/http/dto"
	httperrors "github.com/MakeNowJust/mastodon/internal/transport/http/errors"
	"github.com/MakeNowJust/mastodon/internal/transport/http/identity"
)

const maxUploadBytes = 40 << 20

type MediaHandler struct {
	media *mediasvc.Service
}

func NewMediaHandler(service *mediasvc.Service) *MediaHandler {
	return &MediaHandler{media: service}
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountID(r.Context())
	if !ok {
		httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
			Code:    "UNAUTHORIZED",
			Message: "acting account is not resolved",
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{
			Code:    "BAD_REQUEST",
			Message: "malformed multipart body",
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{
			Code:    "BAD_REQUEST",
			Message: "file field is required",
		})
		return
	}
	defer func() { _ = file.Close() }()

	attachment, err := h.media.Upload(r.Context(), accountID,
		header.Filename, header.Header.Get("Content-Type"), r.FormValue("description"),
		file, header.Size)
	if err != nil {
		switch {
		case errors.Is(err, mediasvc.ErrUnsupportedType):
			httperrors.Unprocessable(w, "UNSUPPORTED_MEDIA_TYPE", "only image, video and audio uploads are accepted")
		case errors.Is(err, mediasvc.ErrValidation):
			httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{
				Code:    "BAD_REQUEST",
				Message: "invalid upload",
			})
		default:
			httperrors.Internal(w)
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MediaUploadFromModel(attachment))
}
