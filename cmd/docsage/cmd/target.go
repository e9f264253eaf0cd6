package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/docindex"
)

// Environment fallbacks for the hosted search index flags.
const (
	envSearchEndpoint = "DOCSAGE_SEARCH_ENDPOINT"
	envSearchAppID    = "DOCSAGE_SEARCH_APP_ID"
	envSearchAPIKey   = "DOCSAGE_SEARCH_API_KEY"
)

// indexFlags are the search-index selection flags shared by ask and
// serve.
type indexFlags struct {
	index     string // logical index name
	indexPath string // local index directory
	endpoint  string // hosted search endpoint
	appID     string
	apiKey    string
}

// searchTarget is a resolved search-index collaborator plus its logical
// index name.
type searchTarget struct {
	client docindex.SearchClient
	index  string
	close  func() error
}

// Close releases the underlying index, if it holds one.
func (t *searchTarget) Close() error {
	if t.close == nil {
		return nil
	}
	return t.close()
}

// loadConfig loads the merged configuration for the current project.
func loadConfig() (*config.Config, error) {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	return config.Load(root)
}

// resolveSearchTarget picks the search index: a hosted client when an
// endpoint is configured (flag or environment), otherwise the local
// index directory.
func resolveSearchTarget(cfg *config.Config, flags indexFlags) (*searchTarget, error) {
	endpoint := firstNonEmpty(flags.endpoint, os.Getenv(envSearchEndpoint))
	indexName := firstNonEmpty(flags.index, cfg.Index.Name)

	if endpoint != "" {
		appID := firstNonEmpty(flags.appID, os.Getenv(envSearchAppID))
		apiKey := firstNonEmpty(flags.apiKey, os.Getenv(envSearchAPIKey))
		return &searchTarget{
			client: docindex.NewHostedClient(endpoint, appID, apiKey),
			index:  indexName,
		}, nil
	}

	indexPath := firstNonEmpty(flags.indexPath, cfg.Index.Path)
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no local index at %s; run 'docsage index build <docs-dir>' first, or set --endpoint for a hosted index", indexPath)
	}

	ix, err := docindex.NewLocalIndex(indexPath)
	if err != nil {
		return nil, err
	}
	return &searchTarget{
		client: ix,
		index:  indexName,
		close:  ix.Close,
	}, nil
}

// registerIndexFlags wires the shared search-index flags onto a command.
func registerIndexFlags(cmd *cobra.Command, flags *indexFlags) {
	cmd.Flags().StringVar(&flags.index, "index", "", "Logical index name (default from config)")
	cmd.Flags().StringVar(&flags.indexPath, "index-path", "", "Local index directory (default from config)")
	cmd.Flags().StringVar(&flags.endpoint, "endpoint", "", "Hosted search endpoint URL (env "+envSearchEndpoint+")")
	cmd.Flags().StringVar(&flags.appID, "app-id", "", "Hosted search application ID (env "+envSearchAppID+")")
	cmd.Flags().StringVar(&flags.apiKey, "api-key", "", "Hosted search API key (env "+envSearchAPIKey+")")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
