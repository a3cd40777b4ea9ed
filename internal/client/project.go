package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/kerraform/kelock/internal/model"
	"go.uber.org/zap"
)

var ErrMissingKey = errors.New("key not found in response")

// ProjectService discovers the versions and builds published for a project.
type ProjectService service

func (s *ProjectService) Versions(ctx context.Context) ([]string, error) {
	ctx, span := s.client.tracer.Start(ctx, "Versions")
	defer span.End()

	s.client.logger.Info("fetching versions")
	r := &model.ProjectResponse{}
	if err := s.get(ctx, s.client.URL().String(), r); err != nil {
		return nil, err
	}

	if r.Versions == nil {
		return nil, fmt.Errorf("%w: versions", ErrMissingKey)
	}

	return *r.Versions, nil
}

func (s *ProjectService) Builds(ctx context.Context, version string) ([]string, error) {
	ctx, span := s.client.tracer.Start(ctx, "Builds")
	defer span.End()

	s.client.logger.Info("fetching builds", zap.String("version", version))
	r := &model.VersionResponse{}
	if err := s.get(ctx, s.client.URL(version).String(), r); err != nil {
		return nil, fmt.Errorf("failed to fetch builds for %s: %w", version, err)
	}

	if r.Builds == nil || r.Builds.All == nil {
		return nil, fmt.Errorf("failed to fetch builds for %s: %w: builds.all", version, ErrMissingKey)
	}

	builds := make([]string, len(*r.Builds.All))
	for i, b := range *r.Builds.All {
		builds[i] = b.String()
	}

	return builds, nil
}

// DownloadURL returns the artifact URL of a build.
func (s *ProjectService) DownloadURL(version, build string) string {
	return s.client.URL(version, build, "download").String()
}

func (s *ProjectService) get(ctx context.Context, urlStr string, v interface{}) error {
	req, err := s.client.NewGetRequest(urlStr)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := CheckResponse(resp); err != nil {
		return err
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", urlStr, err)
	}

	if ce := s.client.logger.Check(zap.InfoLevel, "fetched document"); ce != nil {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, b, "", "  "); err == nil {
			ce.Write(zap.String("url", urlStr), zap.String("body", pretty.String()))
		}
	}

	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", urlStr, err)
	}

	return nil
}

// Latest returns the trailing n entries of list, or all of them when the list
// is shorter.
func Latest(list []string, n int) []string {
	if n < 0 {
		n = 0
	}
	if len(list) <= n {
		return list
	}

	return list[len(list)-n:]
}
