package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/nao1215/linkharvest/internal/crawler"
)

// formData is rendered by index.html.
type formData struct {
	URL      string
	MaxLinks string
	Error    string
}

// resultData is rendered by result.html.
type resultData struct {
	Count int
	URL   string
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "index.html", formData{MaxLinks: strconv.Itoa(s.maxLinks)})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, "index.html", formData{
			MaxLinks: strconv.Itoa(s.maxLinks),
			Error:    "Error: invalid form",
		})
		return
	}

	form := formData{
		URL:      strings.TrimSpace(r.PostFormValue("url")),
		MaxLinks: strings.TrimSpace(r.PostFormValue("max_links")),
	}

	if form.URL == "" {
		form.Error = "Please enter a URL"
		s.render(w, http.StatusBadRequest, "index.html", form)
		return
	}

	maxLinks := s.maxLinks
	if form.MaxLinks != "" {
		n, err := strconv.Atoi(form.MaxLinks)
		if err != nil || n <= 0 {
			form.Error = "Max links must be a positive number"
			s.render(w, http.StatusBadRequest, "index.html", form)
			return
		}
		if n > s.maxLinksLimit {
			form.Error = fmt.Sprintf("Max links must not exceed %d", s.maxLinksLimit)
			s.render(w, http.StatusBadRequest, "index.html", form)
			return
		}
		maxLinks = n
	}

	result, err := s.harvester.Harvest(r.Context(), form.URL, maxLinks)
	if err != nil {
		s.logger.Warn("harvest failed", "url", form.URL, "error", err)
		form.Error = "Error: " + err.Error()
		s.render(w, statusFor(err), "index.html", form)
		return
	}

	q := url.Values{}
	q.Set("count", strconv.Itoa(len(result.NewLinks)))
	q.Set("url", result.Seed)
	http.Redirect(w, r, "/result?"+q.Encode(), http.StatusSeeOther)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	count, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil || count < 0 {
		count = 0
	}
	s.render(w, http.StatusOK, "result.html", resultData{
		Count: count,
		URL:   r.URL.Query().Get("url"),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.outputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "no crawl has produced links yet", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to open output file", "path", s.outputPath, "error", err)
		http.Error(w, "failed to open output file", http.StatusInternalServerError)
		return
	}
	defer f.Close() //nolint:errcheck // read-only file

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "failed to read output file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+DownloadName+`"`)
	http.ServeContent(w, r, DownloadName, info.ModTime(), f)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n")) //nolint:errcheck // client gone
}

// render executes a template into a buffer first so that a template error
// still produces a clean 500.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("failed to render template", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w) //nolint:errcheck // client gone
}

// statusFor maps a harvest error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, crawler.ErrInvalidSeed), errors.Is(err, crawler.ErrInvalidMaxLinks):
		return http.StatusBadRequest
	case errors.Is(err, crawler.ErrSeedUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
