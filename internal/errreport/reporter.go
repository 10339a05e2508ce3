// Package errreport turns fatal bootstrap errors into a diagnostic view and
// hands it to the configured surfaces. It is installed before any other
// stage and stays active for the lifetime of the process.
package errreport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/specialistvlad/avgboot/internal/booterr"
	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// View is a rendered diagnostic.
type View struct {
	Record     booterr.Record
	HTML       string
	Text       string
	Lang       language.Tag
	ReportedAt time.Time
}

// Surface displays a diagnostic view.
type Surface interface {
	Display(ctx context.Context, v View) error
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(ctx context.Context, v View) error

func (f SurfaceFunc) Display(ctx context.Context, v View) error { return f(ctx, v) }

// WriterSurface prints the plain-text view.
type WriterSurface struct {
	W io.Writer
}

func (s WriterSurface) Display(_ context.Context, v View) error {
	_, err := io.WriteString(s.W, v.Text)
	return err
}

// HostInfoFunc collects host details attached to every record.
type HostInfoFunc func(ctx context.Context) (map[string]any, error)

// Option configures a Reporter.
type Option func(*Reporter)

// WithHostInfo replaces the host information collector.
func WithHostInfo(fn HostInfoFunc) Option {
	return func(r *Reporter) { r.hostInfo = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// Reporter is the single sink for fatal errors.
type Reporter struct {
	lang     language.Tag
	surfaces []Surface
	hostInfo HostInfoFunc
	now      func() time.Time

	mu        sync.Mutex
	installed bool
	host      map[string]any
	last      *View
}

// New creates a reporter rendering labels in lang (BCP 47, e.g. "zh-Hans").
func New(lang string, surfaces []Surface, opts ...Option) *Reporter {
	r := &Reporter{
		lang:     matchLanguage(lang),
		surfaces: surfaces,
		hostInfo: gopsutilHostInfo,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Install activates the reporter and snapshots host information. Installing
// twice is a no-op.
func (r *Reporter) Install(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.installed {
		return nil
	}
	if r.hostInfo != nil {
		info, err := r.hostInfo(ctx)
		if err != nil {
			ctxlog.FromContext(ctx).Debug("Host information unavailable.", "error", err)
		} else {
			r.host = info
		}
	}
	r.installed = true
	return nil
}

// Installed reports whether Install ran.
func (r *Reporter) Installed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.installed
}

// Report normalizes err, renders it and displays it on every surface.
func (r *Reporter) Report(ctx context.Context, err error) {
	logger := ctxlog.FromContext(ctx)
	rec := booterr.Normalize(err)

	r.mu.Lock()
	if r.host != nil {
		rec.Data["host"] = r.host
	}
	r.mu.Unlock()

	view, renderErr := r.render(rec)
	if renderErr != nil {
		logger.Error("Failed to render diagnostic view.", "error", renderErr)
	}

	r.mu.Lock()
	r.last = &view
	surfaces := r.surfaces
	r.mu.Unlock()

	logger.Error("🛑 Fatal bootstrap error.", "type", rec.Type, "file", rec.File, "line", rec.LineNumber, "description", rec.Description)
	for _, s := range surfaces {
		if err := s.Display(ctx, view); err != nil {
			logger.Warn("Diagnostic surface failed.", "error", err)
		}
	}
}

// Recover reports a panic as an Internal error. Use it with defer.
func (r *Reporter) Recover(ctx context.Context) {
	if p := recover(); p != nil {
		r.Report(ctx, booterr.New(booterr.Internal, "panic", "", fmt.Errorf("%v", p)))
	}
}

// Last returns the most recently reported view.
func (r *Reporter) Last() (View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return View{}, false
	}
	return *r.last, true
}

// ServeHTTP serves the last view as HTML, or 204 when nothing was reported.
// A request with Accept: application/json gets the record instead.
func (r *Reporter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	view, ok := r.Last()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view.Record)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, view.HTML)
}

var htmlView = template.Must(template.New("diagnostic").Parse(`<div style="padding:20px; width:100%; height:100%; background:#292929; user-select:auto; color:white; overflow-y:scroll">
  <h2 style="color:salmon;">{{.Record.Type}}</h2>
  {{- if .Record.File}}
  <h3 style="color:bisque;">{{.ErrorIn}}</h3>
  {{- end}}
  <h4 style="color:indianred;">[{{.ErrorLabel}}]<br>{{.Record.Description}}</h4>
  <br>
  <h3 style="color:salmon;">{{.AdditionalLabel}}</h3>
  {{- if .FileLine}}
  <div style="color:bisque; white-space:pre; user-select:auto;">{{.FileLine}}</div>
  {{- end}}
  {{- if .LineLine}}
  <div style="color:bisque; white-space:pre; user-select:auto;">{{.LineLine}}</div>
  {{- end}}
  <pre>{{.DataJSON}}</pre>
</div>
`))

type viewModel struct {
	Record          booterr.Record
	ErrorLabel      string
	ErrorIn         string
	AdditionalLabel string
	FileLine        string
	LineLine        string
	DataJSON        string
}

func (r *Reporter) render(rec booterr.Record) (View, error) {
	p := message.NewPrinter(r.lang)
	vm := viewModel{
		Record:          rec,
		ErrorLabel:      p.Sprintf(msgError),
		AdditionalLabel: p.Sprintf(msgAdditional),
	}
	if rec.File != "" {
		vm.ErrorIn = p.Sprintf(msgErrorIn, rec.File)
		vm.FileLine = p.Sprintf(msgFile, rec.File)
	}
	if rec.LineNumber > 0 {
		vm.LineLine = p.Sprintf(msgLine, rec.LineNumber)
	}
	data, err := json.MarshalIndent(rec.Data, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf("%v", rec.Data))
	}
	vm.DataJSON = string(data)

	view := View{Record: rec, Lang: r.lang, ReportedAt: r.now()}

	var text strings.Builder
	fmt.Fprintf(&text, "%s\n%s\n", p.Sprintf(msgTitle), rec.Type)
	if vm.ErrorIn != "" {
		fmt.Fprintf(&text, "%s\n", vm.ErrorIn)
	}
	fmt.Fprintf(&text, "[%s] %s\n", vm.ErrorLabel, rec.Description)
	fmt.Fprintf(&text, "%s:\n", vm.AdditionalLabel)
	if vm.FileLine != "" {
		fmt.Fprintf(&text, "  %s\n", vm.FileLine)
	}
	if vm.LineLine != "" {
		fmt.Fprintf(&text, "  %s\n", vm.LineLine)
	}
	fmt.Fprintf(&text, "%s\n", vm.DataJSON)
	view.Text = text.String()

	var buf bytes.Buffer
	if err := htmlView.Execute(&buf, vm); err != nil {
		return view, err
	}
	view.HTML = buf.String()
	return view, nil
}

func gopsutilHostInfo(ctx context.Context) (map[string]any, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"hostname":        info.Hostname,
		"os":              info.OS,
		"platform":        info.Platform,
		"platformVersion": info.PlatformVersion,
		"kernelVersion":   info.KernelVersion,
		"arch":            info.KernelArch,
	}, nil
}
