package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adamokeah/shamzam/internal/reconcile"
)

// Recognition statuses reported to clients.
const (
	StatusCataloged    = "cataloged"
	StatusUnrecognized = "unrecognized"
	StatusNotInCatalog = "not_in_catalog"
)

// RecognizeResponse describes a recognition outcome. Payload is set only
// for cataloged tracks and is the stored encoded text.
type RecognizeResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	TrackID  uint           `json:"track_id,omitempty"`
	Title    string         `json:"title,omitempty"`
	Artist   string         `json:"artist,omitempty"`
	Payload  string         `json:"payload,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Recognize identifies an uploaded fragment and looks it up in the catalog.
func (c *Controller) Recognize(ctx echo.Context) error {
	fragment, err := c.readUpload(ctx, "file")
	if err != nil {
		return c.HandleError(ctx, err, "invalid fragment upload")
	}

	outcome, err := c.service.Recognize(ctx.Request().Context(), fragment)
	if err != nil {
		return c.HandleError(ctx, err, "recognition failed")
	}

	switch outcome.Kind {
	case reconcile.RecognizedAndCataloged:
		return ctx.JSON(http.StatusOK, RecognizeResponse{
			Status:  StatusCataloged,
			TrackID: outcome.Track.ID,
			Title:   outcome.Track.Title,
			Artist:  outcome.Track.Artist,
			Payload: outcome.Payload.String(),
		})
	case reconcile.RecognizedButAbsent:
		return ctx.JSON(http.StatusNotFound, RecognizeResponse{
			Status:   StatusNotInCatalog,
			Message:  "track recognized but not in catalog",
			Title:    outcome.Recognized.Title,
			Artist:   outcome.Recognized.Artist,
			Metadata: outcome.Recognized.Metadata,
		})
	default:
		return ctx.JSON(http.StatusNotFound, RecognizeResponse{
			Status:  StatusUnrecognized,
			Message: "fragment could not be recognized",
		})
	}
}
