package controllers

import (
	"net/http"

	"github.com/angelmondragon/archivesurmer-backend/api/responses"
	"github.com/angelmondragon/archivesurmer-backend/api/validators"
	"github.com/angelmondragon/archivesurmer-backend/internal/media"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
)

// base64 inflates payloads by a third; the rest covers the JSON envelope.
const uploadEnvelopeSlack = 64 << 10

type uploadImageRequest struct {
	ImageData string `json:"image_data" validate:"required"`
	Folder    string `json:"folder" validate:"max=120"`
}

// UploadImage accepts a base64 data URL (or a remote https URL) and returns
// the public URL of the stored object.
func UploadImage(svc media.Service, maxUploadBytes int64, logg *logger.Logger) http.HandlerFunc {
	limit := maxUploadBytes*4/3 + uploadEnvelopeSlack
	if maxUploadBytes <= 0 {
		limit = validators.DefaultBodyLimit
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}

		var payload uploadImageRequest
		if err := validators.DecodeJSONBodyLimit(r, &payload, limit); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out, err := svc.Upload(ctx, media.UploadInput{
			ImageData: payload.ImageData,
			Folder:    payload.Folder,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}
