package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamokeah/shamzam/internal/catalog"
	"github.com/adamokeah/shamzam/internal/codec"
	"github.com/adamokeah/shamzam/internal/errors"
	"github.com/adamokeah/shamzam/internal/logger"
	"github.com/adamokeah/shamzam/internal/reconcile"
	"github.com/adamokeah/shamzam/internal/recognition"
	"github.com/adamokeah/shamzam/internal/service"
	"github.com/adamokeah/shamzam/internal/testutil"
)

// newTestAPI wires the controller over a real SQLite catalog.
func newTestAPI(t *testing.T, rec recognition.Recognizer, cfg Config) (*echo.Echo, *service.Service) {
	t.Helper()

	store, _ := testutil.NewCatalog(t)
	svc := service.New(store, reconcile.New(rec, store))

	e := echo.New()
	New(e, svc, cfg)
	return e, svc
}

func multipartBody(t *testing.T, fields map[string]string, file []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile("file", "fragment.wav")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAddTrackMultipart(t *testing.T) {
	t.Parallel()
	e, svc := newTestAPI(t, &testutil.StubRecognizer{}, Config{})

	body, contentType := multipartBody(t, map[string]string{"title": "Blinding Lights", "artist": "The Weeknd"}, []byte("AAAA"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tracks", body)
	req.Header.Set(echo.HeaderContentType, contentType)

	rec := serve(e, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"track_id":1,"message":"track added"}`, rec.Body.String())

	tracks, err := svc.ListTracks(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []catalog.TrackInfo{{ID: 1, Title: "Blinding Lights", Artist: "The Weeknd"}}, tracks)
}

func TestAddTrackJSON(t *testing.T) {
	t.Parallel()
	e, _ := newTestAPI(t, &testutil.StubRecognizer{Result: recognition.Matched("The Weeknd", "Blinding Lights", nil)}, Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tracks",
		strings.NewReader(`{"title":"Blinding Lights","artist":"The Weeknd","payload":"QUFBQQ=="}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := serve(e, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// the stored payload comes back as the same encoded text
	body, contentType := multipartBody(t, nil, []byte("fragment"))
	req = httptest.NewRequest(http.MethodPost, "/api/v1/recognize", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec = serve(e, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RecognizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "QUFBQQ==", resp.Payload)
}

func TestAddTrackValidation(t *testing.T) {
	t.Parallel()
	e, _ := newTestAPI(t, &testutil.StubRecognizer{}, Config{})

	tests := []struct {
		name        string
		body        string
		contentType string
	}{
		{"malformed payload", `{"title":"t","artist":"a","payload":"not base64!"}`, echo.MIMEApplicationJSON},
		{"missing payload", `{"title":"t","artist":"a"}`, echo.MIMEApplicationJSON},
		{"missing title", `{"artist":"a","payload":"QUFBQQ=="}`, echo.MIMEApplicationJSON},
		{"invalid json", `{"title":`, echo.MIMEApplicationJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/tracks", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, tt.contentType)
			rec := serve(e, req)

			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			resp := decodeError(t, rec)
			assert.Equal(t, string(errors.CategoryValidation), resp.Kind)
			assert.NotEmpty(t, resp.CorrelationID)
			assert.NotEmpty(t, resp.Error)
		})
	}

	t.Run("multipart without file", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{"title": "t", "artist": "a"}, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tracks", body)
		req.Header.Set(echo.HeaderContentType, contentType)
		rec := serve(e, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUploadLimit(t *testing.T) {
	t.Parallel()
	e, _ := newTestAPI(t, &testutil.StubRecognizer{}, Config{MaxUploadSize: 8})

	body, contentType := multipartBody(t, map[string]string{"title": "t", "artist": "a"}, bytes.Repeat([]byte("x"), 9))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tracks", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := serve(e, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error, "upload limit")
}

func TestListTracks(t *testing.T) {
	t.Parallel()
	e, svc := newTestAPI(t, &testutil.StubRecognizer{}, Config{})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/tracks", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	_, err := svc.AddTrack(t.Context(), "Blinding Lights", "The Weeknd", codec.RawBytes("AAAA"))
	require.NoError(t, err)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/tracks", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":1,"title":"Blinding Lights","artist":"The Weeknd"}]`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "payload")
}

func TestDeleteTrack(t *testing.T) {
	t.Parallel()
	e, svc := newTestAPI(t, &testutil.StubRecognizer{}, Config{})
	ctx := t.Context()

	_, err := svc.AddTrack(ctx, "Blinding Lights", "The Weeknd", codec.RawBytes("AAAA"))
	require.NoError(t, err)

	rec := serve(e, httptest.NewRequest(http.MethodDelete, "/api/v1/tracks/1", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":1}`, rec.Body.String())

	rec = serve(e, httptest.NewRequest(http.MethodDelete, "/api/v1/tracks/1", http.NoBody))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(errors.CategoryNotFound), decodeError(t, rec).Kind)

	for _, id := range []string{"abc", "0", "-1"} {
		rec = serve(e, httptest.NewRequest(http.MethodDelete, "/api/v1/tracks/"+id, http.NoBody))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "id %q", id)
	}
}

func TestDeleteTracksByKey(t *testing.T) {
	t.Parallel()
	e, svc := newTestAPI(t, &testutil.StubRecognizer{}, Config{})
	ctx := t.Context()

	for range 2 {
		_, err := svc.AddTrack(ctx, "Blinding Lights", "The Weeknd", codec.RawBytes("AAAA"))
		require.NoError(t, err)
	}
	_, err := svc.AddTrack(ctx, "good 4 u", "Olivia Rodrigo", codec.RawBytes("BBBB"))
	require.NoError(t, err)

	rec := serve(e, httptest.NewRequest(http.MethodDelete, "/api/v1/tracks?title=Blinding+Lights&artist=The+Weeknd", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":2}`, rec.Body.String())

	rec = serve(e, httptest.NewRequest(http.MethodDelete, "/api/v1/tracks?title=Blinding+Lights&artist=The+Weeknd", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(e, httptest.NewRequest(http.MethodDelete, "/api/v1/tracks?title=good+4+u", http.NoBody))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	n, err := svc.CountTracks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRecognize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		recognizer *testutil.StubRecognizer
		wantCode   int
		wantStatus string
	}{
		{
			name:       "cataloged",
			recognizer: &testutil.StubRecognizer{Result: recognition.Matched("The Weeknd", "Blinding Lights", nil)},
			wantCode:   http.StatusOK,
			wantStatus: StatusCataloged,
		},
		{
			name:       "unrecognized",
			recognizer: &testutil.StubRecognizer{Result: recognition.NoMatch()},
			wantCode:   http.StatusNotFound,
			wantStatus: StatusUnrecognized,
		},
		{
			name: "not in catalog",
			recognizer: &testutil.StubRecognizer{Result: recognition.Matched("Olivia Rodrigo", "good 4 u",
				map[string]any{"album": "SOUR"})},
			wantCode:   http.StatusNotFound,
			wantStatus: StatusNotInCatalog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, svc := newTestAPI(t, tt.recognizer, Config{})
			_, err := svc.AddTrack(t.Context(), "Blinding Lights", "The Weeknd", codec.RawBytes("AAAA"))
			require.NoError(t, err)

			body, contentType := multipartBody(t, nil, []byte("fragment"))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", body)
			req.Header.Set(echo.HeaderContentType, contentType)
			rec := serve(e, req)

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			var resp RecognizeResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)

			switch tt.wantStatus {
			case StatusCataloged:
				assert.Equal(t, uint(1), resp.TrackID)
				assert.Equal(t, "Blinding Lights", resp.Title)
				assert.Equal(t, "The Weeknd", resp.Artist)
				assert.Equal(t, codec.Encode(codec.RawBytes("AAAA")).String(), resp.Payload)
			case StatusNotInCatalog:
				assert.Equal(t, "good 4 u", resp.Title)
				assert.Equal(t, "Olivia Rodrigo", resp.Artist)
				assert.Equal(t, "SOUR", resp.Metadata["album"])
				assert.Empty(t, resp.Payload)
			}
		})
	}
}

func TestRecognizeErrors(t *testing.T) {
	t.Parallel()

	providerErr := func(category errors.ErrorCategory) error {
		return errors.Newf("provider failure").Component("recognition").Category(category).Build()
	}

	tests := []struct {
		name     string
		err      error
		fragment []byte
		wantCode int
		wantKind errors.ErrorCategory
	}{
		{"provider auth", providerErr(errors.CategoryProviderAuth), []byte("x"), http.StatusBadGateway, errors.CategoryProviderAuth},
		{"provider unavailable", providerErr(errors.CategoryProviderUnavailable), []byte("x"), http.StatusServiceUnavailable, errors.CategoryProviderUnavailable},
		{"empty fragment", nil, []byte{}, http.StatusBadRequest, errors.CategoryValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, _ := newTestAPI(t, &testutil.StubRecognizer{Err: tt.err}, Config{})

			body, contentType := multipartBody(t, nil, tt.fragment)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", body)
			req.Header.Set(echo.HeaderContentType, contentType)
			rec := serve(e, req)

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, string(tt.wantKind), decodeError(t, rec).Kind)
		})
	}
}

func TestResetRoute(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		e, _ := newTestAPI(t, &testutil.StubRecognizer{}, Config{})
		rec := serve(e, httptest.NewRequest(http.MethodPost, "/api/v1/admin/reset", http.NoBody))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("enabled", func(t *testing.T) {
		t.Parallel()
		e, svc := newTestAPI(t, &testutil.StubRecognizer{}, Config{AllowReset: true})
		ctx := t.Context()
		_, err := svc.AddTrack(ctx, "Blinding Lights", "The Weeknd", codec.RawBytes("AAAA"))
		require.NoError(t, err)

		rec := serve(e, httptest.NewRequest(http.MethodPost, "/api/v1/admin/reset", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)

		id, err := svc.AddTrack(ctx, "good 4 u", "Olivia Rodrigo", codec.RawBytes("BBBB"))
		require.NoError(t, err)
		assert.Equal(t, uint(1), id)
	})
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	e, _ := newTestAPI(t, &testutil.StubRecognizer{}, Config{})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/health", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(0), body["tracks"])
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := map[errors.ErrorCategory]int{
		errors.CategoryValidation:          http.StatusBadRequest,
		errors.CategoryNotFound:            http.StatusNotFound,
		errors.CategoryProviderAuth:        http.StatusBadGateway,
		errors.CategoryProviderUnavailable: http.StatusServiceUnavailable,
		errors.CategoryStorage:             http.StatusInternalServerError,
		errors.CategoryMalformedEncoding:   http.StatusInternalServerError,
		errors.CategoryGeneric:             http.StatusInternalServerError,
	}
	for category, want := range tests {
		assert.Equal(t, want, StatusFor(category), category)
	}
}

func TestHandleErrorUsesRequestID(t *testing.T) {
	t.Parallel()

	e := echo.New()
	c := &Controller{log: logger.NewNopLogger()}
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Response().Header().Set(echo.HeaderXRequestID, "req-123")

	storageErr := errors.Newf("disk full").Category(errors.CategoryStorage).Build()
	require.NoError(t, c.HandleError(ctx, storageErr, "failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "req-123", resp.CorrelationID)
	assert.Equal(t, string(errors.CategoryStorage), resp.Kind)
	assert.Equal(t, "failed", resp.Message)
}
