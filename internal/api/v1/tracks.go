package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/adamokeah/shamzam/internal/service"
)

// AddTrackRequest is the JSON form of a track upload. Payload is already
// encoded text and is stored without re-encoding.
type AddTrackRequest struct {
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Payload string `json:"payload"`
}

// AddTrack accepts either a multipart upload (title, artist, file) or a
// JSON AddTrackRequest.
func (c *Controller) AddTrack(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var (
		id  uint
		err error
	)
	if strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		var data []byte
		data, err = c.readUpload(ctx, "file")
		if err != nil {
			return c.HandleError(ctx, err, "invalid track upload")
		}
		id, err = c.service.AddTrack(reqCtx, ctx.FormValue("title"), ctx.FormValue("artist"), data)
	} else {
		var req AddTrackRequest
		if bindErr := ctx.Bind(&req); bindErr != nil {
			return c.HandleError(ctx, requestError("invalid request body: %v", bindErr), "invalid track upload")
		}
		id, err = c.service.AddEncodedTrack(reqCtx, req.Title, req.Artist, req.Payload)
	}
	if err != nil {
		return c.HandleError(ctx, err, "failed to add track")
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"track_id": id,
		"message":  "track added",
	})
}

// ListTracks returns every track without its payload.
func (c *Controller) ListTracks(ctx echo.Context) error {
	tracks, err := c.service.ListTracks(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "failed to list tracks")
	}
	return ctx.JSON(http.StatusOK, tracks)
}

// DeleteTrack removes one track by id.
func (c *Controller) DeleteTrack(ctx echo.Context) error {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return c.HandleError(ctx, requestError("invalid track id %q", ctx.Param("id")), "invalid track id")
	}

	deleted, err := c.service.DeleteTrack(ctx.Request().Context(), service.DeleteRequest{ID: uint(id)})
	if err != nil {
		return c.HandleError(ctx, err, "failed to delete track")
	}
	return ctx.JSON(http.StatusOK, map[string]any{"deleted": deleted})
}

// DeleteTracksByKey removes every track with the given title and artist.
func (c *Controller) DeleteTracksByKey(ctx echo.Context) error {
	req := service.DeleteRequest{
		Title:  ctx.QueryParam("title"),
		Artist: ctx.QueryParam("artist"),
	}
	deleted, err := c.service.DeleteTrack(ctx.Request().Context(), req)
	if err != nil {
		return c.HandleError(ctx, err, "failed to delete tracks")
	}
	return ctx.JSON(http.StatusOK, map[string]any{"deleted": deleted})
}
