package errreport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/specialistvlad/avgboot/internal/booterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func fixedHost(context.Context) (map[string]any, error) {
	return map[string]any{"os": "linux"}, nil
}

func settingsError() error {
	be := booterr.New(booterr.SettingsParse, "settings.engine", "/app/data/engine.json", errors.New("invalid character '}'"))
	be.Line = 12
	return be
}

func TestReport_RendersAndDisplays(t *testing.T) {
	// Arrange
	var shown []View
	var terminal bytes.Buffer
	r := New("en", []Surface{
		SurfaceFunc(func(_ context.Context, v View) error {
			shown = append(shown, v)
			return nil
		}),
		WriterSurface{W: &terminal},
	}, WithHostInfo(fixedHost))
	ctx := context.Background()
	require.NoError(t, r.Install(ctx))
	assert.True(t, r.Installed())

	// Act
	r.Report(ctx, settingsError())

	// Assert
	require.Len(t, shown, 1)
	v := shown[0]
	assert.Equal(t, "SettingsParseError", v.Record.Type)
	assert.Equal(t, "/app/data/engine.json", v.Record.File)
	assert.Equal(t, 12, v.Record.LineNumber)
	assert.Equal(t, map[string]any{"os": "linux"}, v.Record.Data["host"])

	assert.Contains(t, v.HTML, "<h2 style=\"color:salmon;\">SettingsParseError</h2>")
	assert.Contains(t, v.HTML, "Error in /app/data/engine.json")
	assert.Contains(t, v.HTML, "Line: 12")
	assert.Contains(t, v.HTML, "invalid character &#39;}&#39;")

	assert.Contains(t, terminal.String(), "The game could not start")
	assert.Contains(t, terminal.String(), "[Error] invalid character '}'")

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, v.Record, last.Record)
}

func TestReport_Chinese(t *testing.T) {
	var got View
	r := New("zh-CN", []Surface{SurfaceFunc(func(_ context.Context, v View) error {
		got = v
		return nil
	})}, WithHostInfo(nil))

	r.Report(context.Background(), settingsError())

	assert.Equal(t, language.SimplifiedChinese, got.Lang)
	assert.Contains(t, got.Text, "游戏无法启动")
	assert.Contains(t, got.Text, "附加信息")
	assert.Contains(t, got.Text, "行号: 12")
}

func TestMatchLanguage(t *testing.T) {
	assert.Equal(t, language.English, matchLanguage(""))
	assert.Equal(t, language.English, matchLanguage("not a tag!"))
	assert.Equal(t, language.English, matchLanguage("en-GB"))
	assert.Equal(t, language.SimplifiedChinese, matchLanguage("zh-Hans"))
}

func TestRecover(t *testing.T) {
	r := New("en", nil, WithHostInfo(nil))
	ctx := context.Background()

	func() {
		defer r.Recover(ctx)
		panic("boom")
	}()

	v, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "InternalError", v.Record.Type)
	assert.Equal(t, "boom", v.Record.Description)
}

func TestSurfaceFailureDoesNotStopOthers(t *testing.T) {
	calls := 0
	r := New("en", []Surface{
		SurfaceFunc(func(context.Context, View) error { return errors.New("window closed") }),
		SurfaceFunc(func(context.Context, View) error { calls++; return nil }),
	}, WithHostInfo(nil))

	r.Report(context.Background(), errors.New("plain failure"))
	assert.Equal(t, 1, calls)
}

func TestServeHTTP(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := New("en", nil, WithHostInfo(nil), WithClock(func() time.Time { return now }))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/diagnostic", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	r.Report(context.Background(), settingsError())
	v, _ := r.Last()
	assert.Equal(t, now, v.ReportedAt)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/diagnostic", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SettingsParseError")

	req := httptest.NewRequest(http.MethodGet, "/diagnostic", nil)
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var got booterr.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "SettingsParseError", got.Type)
	assert.Equal(t, 12, got.LineNumber)
}
