package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/CourageResearch/imputation/internal/core/intake"
	"github.com/CourageResearch/imputation/internal/core/job"
	"github.com/CourageResearch/imputation/internal/core/result"
)

// TransferHandler serves the byte-moving routes: multipart upload and
// artifact download. These stay plain echo handlers because they deal
// in streams, not JSON bodies.
type TransferHandler struct {
	intake  *intake.Service
	results *result.Service
}

func NewTransferHandler(in *intake.Service, res *result.Service) *TransferHandler {
	return &TransferHandler{intake: in, results: res}
}

// Upload handles POST /api/upload with a multipart "file" field.
func (h *TransferHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file field")
	}

	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}
	defer func() { _ = src.Close() }()

	j, err := h.intake.Submit(c.Request().Context(), src, fh.Filename)
	if err != nil {
		if ve, ok := intake.AsValidation(err); ok {
			status := http.StatusBadRequest
			if ve.Kind == intake.KindTooLarge {
				status = http.StatusRequestEntityTooLarge
			}
			return echo.NewHTTPError(status, ve.Message)
		}
		log.Error().Err(err).Str("filename", fh.Filename).Msg("upload failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "upload failed")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"uuid":     j.ID,
		"filename": j.OriginalName,
	})
}

// Download handles GET /api/download/:uuid, serving the compressed
// result artifact with the display name derived from the original
// upload. ServeContent takes care of Range requests.
func (h *TransferHandler) Download(c echo.Context) error {
	art, err := h.results.Fetch(c.Request().Context(), c.Param("uuid"))
	if err != nil {
		switch {
		case errors.Is(err, job.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "job not found")
		case errors.Is(err, result.ErrMissingArtifact):
			log.Error().Err(err).Str("job_id", c.Param("uuid")).Msg("result artifact missing")
			return echo.NewHTTPError(http.StatusInternalServerError, "output artifact missing")
		default:
			if ise, ok := job.IsInvalidState(err); ok {
				return echo.NewHTTPError(http.StatusConflict,
					fmt.Sprintf("job not completed (status: %s)", ise.Current))
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	f, err := os.Open(art.Path)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "output artifact unreadable")
	}
	defer func() { _ = f.Close() }()

	w := c.Response()
	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, art.DisplayName))
	http.ServeContent(w, c.Request(), art.DisplayName, art.ModTime, f)
	return nil
}
