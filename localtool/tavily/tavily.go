// Package tavily provides the web search tool backed by Tavily.
package tavily

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	tavilygo "github.com/diverged/tavily-go"
	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/utcpbridge/localtool"
)

// ToolName is the name of the web search tool
const ToolName = "web_search"

// APIKeyEnv is the environment variable with the Tavily API key
const APIKeyEnv = "TAVILY_API_KEY"

// SearchRequest represents the tool input.
type SearchRequest struct {
	Query string `json:"query" yaml:"query" jsonschema:"title=Search Query,description=The query to search web." validate:"required"`
	Depth string `json:"depth,omitempty" yaml:"depth,omitempty" jsonschema:"title=Search Depth,description=basic or advanced.,enum=basic,enum=advanced" validate:"omitempty,oneof=basic advanced"`
}

// SearchResult represents the structure for a search response
type SearchResult struct {
	Results []tavilyModels.SearchResult `json:"results" yaml:"results"`
	Answer  string                      `json:"answer,omitempty" yaml:"answer,omitempty"`
}

// Searcher performs the web search
type Searcher struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New returns the Searcher with the API key from TAVILY_API_KEY
func New() (*Searcher, error) {
	apikey := os.Getenv(APIKeyEnv)
	if apikey == "" {
		return nil, errors.Errorf("%s is not set", APIKeyEnv)
	}
	return &Searcher{
		apiKey:     apikey,
		httpClient: http.DefaultClient,
	}, nil
}

// WithBaseURL overrides the Tavily endpoint
func (s *Searcher) WithBaseURL(baseURL string) *Searcher {
	s.baseURL = baseURL
	return s
}

// WithHTTPClient overrides the HTTP client
func (s *Searcher) WithHTTPClient(client *http.Client) *Searcher {
	s.httpClient = client
	return s
}

// Register adds the web search tool to the toolbox
func (s *Searcher) Register(tb *localtool.Toolbox) error {
	return localtool.Register(tb, ToolName, "Searches the web and returns the matching pages with an aggregated answer.", s.Search)
}

// Search performs the web search
func (s *Searcher) Search(_ context.Context, req *SearchRequest) (*SearchResult, error) {
	if req.Query == "" {
		return nil, errors.New("invalid request: empty query")
	}

	client := tavilygo.NewClient(s.apiKey)
	if s.baseURL != "" {
		client.BaseURL = s.baseURL
	}
	if s.httpClient != nil {
		client.HTTPClient = s.httpClient
	}

	depth := req.Depth
	if depth == "" {
		depth = "basic"
	}
	searchResp, err := tavilygo.Search(client, tavilyModels.SearchRequest{
		Query:         req.Query,
		SearchDepth:   depth,
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to perform search")
	}

	return &SearchResult{
		Results: searchResp.Results,
		Answer:  searchResp.Answer,
	}, nil
}

func (r *SearchResult) String() string {
	var buf bytes.Buffer
	if r.Answer != "" {
		fmt.Fprintf(&buf, "ANSWER: %s\n", r.Answer)
	}

	for _, result := range r.Results {
		fmt.Fprintf(&buf, "- URL: %s\n", result.URL)
		fmt.Fprintf(&buf, "  TITLE: %s\n", result.Title)
		fmt.Fprintf(&buf, "  SCORE: %f\n", result.Score)
		fmt.Fprintf(&buf, "  CONTENT: %s\n", result.Content)
	}

	return buf.String()
}
