package ollama

import (
	"net/http"
	"net/url"

	"github.com/OFFIS-RIT/influence/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// ExtractOllamaClient implements ai.Client on top of a (possibly remote)
// Ollama server. Concurrent requests are bounded by a weighted semaphore.
type ExtractOllamaClient struct {
	ai.MetricsRecorder

	extractionModel string
	reqLock         *semaphore.Weighted

	Client *api.Client
}

// NewExtractOllamaClientParams contains configuration options for creating a new ExtractOllamaClient.
type NewExtractOllamaClientParams struct {
	ExtractionModel string

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewExtractOllamaClient creates a new Ollama-based client. An empty BaseURL
// falls back to the api package default (OLLAMA_HOST).
func NewExtractOllamaClient(
	params NewExtractOllamaClientParams,
) (*ExtractOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	var cli *api.Client
	if u == nil {
		cli, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, err
		}
	} else {
		httpClient := &http.Client{Transport: http.DefaultTransport}
		if params.ApiKey != "" {
			httpClient.Transport = &headerTransport{
				headers: map[string]string{
					"Authorization": "Bearer " + params.ApiKey,
				},
				rt: http.DefaultTransport,
			}
		}
		cli = api.NewClient(u, httpClient)
	}

	maxReq := params.MaxConcurrentRequests
	if maxReq <= 0 {
		maxReq = 4
	}

	return &ExtractOllamaClient{
		extractionModel: params.ExtractionModel,
		reqLock:         semaphore.NewWeighted(maxReq),
		Client:          cli,
	}, nil
}
