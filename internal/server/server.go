// Package server provides the HTTP front end: a single form page that runs
// an audit and renders the resulting report. It is a thin I/O wrapper around
// the audit invocation boundary.
package server

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// downloadTimeout bounds fetching a document by URL.
const downloadTimeout = 30 * time.Second

// Runner executes one audit. Implemented by the audit package wiring; faked
// in tests.
type Runner interface {
	Audit(ctx context.Context, repoURL, docPath string) (report string, err error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, repoURL, docPath string) (string, error)

func (f RunnerFunc) Audit(ctx context.Context, repoURL, docPath string) (string, error) {
	return f(ctx, repoURL, docPath)
}

// Server serves the audit form and runs audits on submission.
type Server struct {
	runner Runner
	client *http.Client
	mux    *http.ServeMux
}

// New creates a Server around the given runner.
func New(runner Runner) *Server {
	s := &Server{
		runner: runner,
		client: &http.Client{Timeout: downloadTimeout},
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /{$}", s.handleRun)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server on addr, shutting down when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// pageData feeds the HTML template.
type pageData struct {
	Error  string
	Report string
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, pageData{})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, pageData{Error: "malformed form submission"})
		return
	}

	repoURL := strings.TrimSpace(r.PostFormValue("repo_url"))
	docInput := strings.TrimSpace(r.PostFormValue("doc_input"))

	docPath, cleanup, err := s.resolveDoc(r.Context(), docInput)
	if err != nil {
		s.render(w, http.StatusBadRequest, pageData{
			Error: fmt.Sprintf("failed to fetch or locate the document: %v", err),
		})
		return
	}
	defer cleanup()

	// Missing input is not an error: the run completes on the degraded path.
	rendered, err := s.runner.Audit(r.Context(), repoURL, docPath)
	if err != nil {
		s.render(w, http.StatusInternalServerError, pageData{
			Error: fmt.Sprintf("audit failed: %v", err),
		})
		return
	}

	s.render(w, http.StatusOK, pageData{Report: rendered})
}

// resolveDoc turns the document input into a local path, downloading it when
// given a URL. The cleanup function removes any temporary file.
func (s *Server) resolveDoc(ctx context.Context, input string) (string, func(), error) {
	noop := func() {}
	if input == "" {
		return "", noop, nil
	}

	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		if _, err := os.Stat(input); err != nil {
			return "", noop, err
		}
		return input, noop, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input, nil)
	if err != nil {
		return "", noop, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", noop, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", noop, fmt.Errorf("document download returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "auditor-doc-*.md")
	if err != nil {
		return "", noop, err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", noop, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", noop, err
	}

	return tmp.Name(), func() { _ = os.Remove(tmp.Name()) }, nil
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = page.Execute(w, data)
}

var page = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <title>Automaton Auditor</title>
</head>
<body>
  <h1>Automaton Auditor</h1>
  <p>Run the audit against a repository and its report.</p>
  <form method="post" action="/">
    <label>Repository URL
      <input type="text" name="repo_url" placeholder="https://github.com/user/repo" />
    </label>
    <label>Document path or URL
      <input type="text" name="doc_input" placeholder="reports/report.md or https://..." />
    </label>
    <button type="submit">Run Audit</button>
  </form>
{{if .Error}}
  <h2>Error</h2>
  <pre>{{.Error}}</pre>
{{end}}
{{if .Report}}
  <h2>Latest Audit Report</h2>
  <pre>{{.Report}}</pre>
{{end}}
</body>
</html>
`))
