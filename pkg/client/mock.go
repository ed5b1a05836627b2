package client

import (
	"context"
	"time"

	"github.com/brewer-michael/claudia-web/pkg/protocol"
)

// MockProjects is the static project list shown when the workspace
// server cannot be reached. It stands in for real data so the UI has
// something to render; it is never merged with server state.
func MockProjects() []protocol.ProjectSummary {
	created := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	return []protocol.ProjectSummary{
		{ID: "demo", Name: "Demo Project", Path: "demo", CreatedAt: created},
		{ID: "scratch", Name: "Scratch", Path: "scratch", CreatedAt: created},
	}
}

// ListProjectsOrMock returns the server's project list, or the static
// mock list when the request fails. Only the project roster falls
// back this way; listings and file content never substitute mock
// data.
func (c *Client) ListProjectsOrMock(ctx context.Context) []protocol.ProjectSummary {
	projects, err := c.ListProjects(ctx)
	if err != nil {
		c.logger.Warn("project listing failed, serving mock data")
		return MockProjects()
	}
	return projects
}
