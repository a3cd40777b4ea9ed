// Package apitest runs an in-memory build API for tests. It serves the same
// routes as the upstream project API under BasePath.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	BasePath = "/v2/purpur"
	Project  = "purpur"
)

type Server struct {
	*httptest.Server

	logger *zap.Logger
	mux    *mux.Router

	mu          sync.Mutex
	artifacts   map[string][]byte
	builds      map[string][]string
	failures    map[string][]int
	hits        map[string]int
	projectBody []byte
	versionBody map[string][]byte
	versions    []string
}

// NewServer starts a server and stops it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		logger:      zap.NewNop(),
		mux:         mux.NewRouter(),
		artifacts:   map[string][]byte{},
		builds:      map[string][]string{},
		failures:    map[string][]int{},
		hits:        map[string]int{},
		versionBody: map[string][]byte{},
	}

	s.registerHandler()
	s.Server = httptest.NewServer(s.mux)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) registerHandler() {
	s.mux.Use(s.accessLog, s.injectFailures)

	r := s.mux.PathPrefix(BasePath).Subrouter()
	r.Methods(http.MethodGet).Path("").Handler(newHandler(s.logger, s.getProject))
	r.Methods(http.MethodGet).Path("/{version}").Handler(newHandler(s.logger, s.getVersion))
	r.Methods(http.MethodGet).Path("/{version}/{build}/download").Handler(newHandler(s.logger, s.download))

	s.mux.NotFoundHandler = s.accessLog(newHandler(s.logger, func(w http.ResponseWriter, _ *http.Request) error {
		return &statusError{code: http.StatusNotFound, msg: "not found"}
	}))
}

// Endpoint returns the project URL to configure clients with.
func (s *Server) Endpoint() string {
	return s.URL + BasePath
}

func (s *Server) SetVersions(versions ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions = versions
}

func (s *Server) SetBuilds(version string, builds ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builds[version] = builds
}

func (s *Server) SetArtifact(version, build string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[artifactKey(version, build)] = content
}

// SetProjectBody replaces the project document with a raw body.
func (s *Server) SetProjectBody(body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projectBody = body
}

// SetVersionBody replaces the document of version with a raw body.
func (s *Server) SetVersionBody(version string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versionBody[version] = body
}

// FailNext makes the next requests to path answer with codes, one per request.
func (s *Server) FailNext(path string, codes ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = append(s.failures[path], codes...)
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *Server) record(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits[path]++
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		codes := s.failures[r.URL.Path]
		var code int
		if len(codes) > 0 {
			code = codes[0]
			s.failures[r.URL.Path] = codes[1:]
		}
		s.mu.Unlock()

		if code != 0 {
			newHandler(s.logger, func(http.ResponseWriter, *http.Request) error {
				return &statusError{code: code, msg: http.StatusText(code)}
			}).ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type projectResponse struct {
	ProjectID   string   `json:"project_id"`
	ProjectName string   `json:"project_name"`
	Versions    []string `json:"versions"`
}

type versionResponse struct {
	Project string        `json:"project"`
	Version string        `json:"version"`
	Builds  buildsPayload `json:"builds"`
}

type buildsPayload struct {
	Latest string   `json:"latest"`
	All    []string `json:"all"`
}

func (s *Server) getProject(w http.ResponseWriter, _ *http.Request) error {
	s.mu.Lock()
	body := s.projectBody
	resp := &projectResponse{
		ProjectID:   Project,
		ProjectName: "Purpur",
		Versions:    append([]string{}, s.versions...),
	}
	s.mu.Unlock()

	return writeJSON(w, body, resp)
}

func (s *Server) getVersion(w http.ResponseWriter, r *http.Request) error {
	version := mux.Vars(r)["version"]

	s.mu.Lock()
	body := s.versionBody[version]
	builds, ok := s.builds[version]
	s.mu.Unlock()

	if body == nil && !ok {
		return &statusError{code: http.StatusNotFound, msg: fmt.Sprintf("version %s not found", version)}
	}

	resp := &versionResponse{
		Project: Project,
		Version: version,
		Builds: buildsPayload{
			All: append([]string{}, builds...),
		},
	}
	if len(builds) > 0 {
		resp.Builds.Latest = builds[len(builds)-1]
	}

	return writeJSON(w, body, resp)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) error {
	vars := mux.Vars(r)

	s.mu.Lock()
	content, ok := s.artifacts[artifactKey(vars["version"], vars["build"])]
	s.mu.Unlock()

	if !ok {
		return &statusError{code: http.StatusNotFound, msg: "build not found"}
	}

	w.Header().Set("Content-Type", "application/java-archive")
	_, err := w.Write(content)
	return err
}

func writeJSON(w http.ResponseWriter, raw []byte, v interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if raw != nil {
		_, err := w.Write(raw)
		return err
	}

	return json.NewEncoder(w).Encode(v)
}

func artifactKey(version, build string) string {
	return version + "/" + build
}
