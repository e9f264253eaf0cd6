package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

// Resource URIs exposed by the server.
const (
	StatsResourceURI  = "docsage://stats"
	ConfigResourceURI = "docsage://config"
)

// registerStatsResource registers the run-statistics resource.
func (s *Server) registerStatsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "stats",
			URI:         StatsResourceURI,
			Description: "Run telemetry: query types, outcomes, cache hit rate and latency distribution",
			MIMEType:    "application/json",
		},
		s.makeStatsHandler(),
	)
}

// makeStatsHandler creates a read handler for the stats resource.
func (s *Server) makeStatsHandler() mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		s.mu.RLock()
		metrics := s.metrics
		s.mu.RUnlock()

		if metrics == nil {
			return nil, NewResourceNotFoundError(StatsResourceURI)
		}

		snapshot := metrics.Snapshot()
		content, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return nil, MapError(err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      StatsResourceURI,
					MIMEType: "application/json",
					Text:     string(content),
				},
			},
		}, nil
	}
}

// registerConfigResource registers the effective-configuration resource.
func (s *Server) registerConfigResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "config",
			URI:         ConfigResourceURI,
			Description: "Effective server configuration after defaults and overrides",
			MIMEType:    "application/yaml",
		},
		s.makeConfigHandler(),
	)
}

// makeConfigHandler creates a read handler for the config resource.
func (s *Server) makeConfigHandler() mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		content, err := yaml.Marshal(s.config)
		if err != nil {
			return nil, MapError(err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      ConfigResourceURI,
					MIMEType: "application/yaml",
					Text:     string(content),
				},
			},
		}, nil
	}
}
