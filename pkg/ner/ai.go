package ner

import (
	"context"
	"fmt"
	"strings"
	"time"

	gUtil "github.com/OFFIS-RIT/influence/internal/util"
	"github.com/OFFIS-RIT/influence/pkg/ai"
)

const (
	defaultRetries = 3
	defaultBackoff = 500 * time.Millisecond
)

const extractPrompt = `You are a named entity recognizer for the UK Register of Members' Financial Interests and Electoral Commission donation records.

Return every organization (companies, charities, trade unions, public bodies, newspapers) and every location (countries, cities, regions) mentioned in the text.
- Copy names exactly as written, including suffixes like "Ltd", "plc" or "Limited".
- Keep the order in which the names appear.
- Do not return people, dates, amounts or job titles.
- Return an empty list if nothing qualifies.`

type extractEntity struct {
	Name string `json:"name" jsonschema_description:"Name of the organization or location exactly as written in the text"`
	Type string `json:"type" jsonschema:"enum=ORGANIZATION,enum=LOCATION" jsonschema_description:"ORGANIZATION or LOCATION"`
}

type extractResponse struct {
	Entities []extractEntity `json:"entities" jsonschema_description:"Organizations and locations identified in the text, in order of appearance"`
}

// AIExtractor asks a language model for entity candidates.
type AIExtractor struct {
	client  ai.Client
	opts    []ai.GenerateOption
	retries int
	backoff time.Duration
}

// NewAIExtractor returns an extractor backed by client. opts are passed to
// every completion request.
func NewAIExtractor(client ai.Client, opts ...ai.GenerateOption) *AIExtractor {
	return &AIExtractor{
		client:  client,
		opts:    opts,
		retries: defaultRetries,
		backoff: defaultBackoff,
	}
}

// WithRetry sets how often a failed completion is attempted and the
// initial delay between attempts.
func (e *AIExtractor) WithRetry(tries int, backoff time.Duration) *AIExtractor {
	e.retries = tries
	e.backoff = backoff
	return e
}

// GetEntities implements EntityExtractor.
func (e *AIExtractor) GetEntities(ctx context.Context, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	opts := append([]ai.GenerateOption{ai.WithSystemPrompts(extractPrompt)}, e.opts...)

	res, err := gUtil.RetryWithBackoff(ctx, e.retries, e.backoff, func(ctx context.Context) (extractResponse, error) {
		var res extractResponse
		err := e.client.GenerateCompletionWithFormat(
			ctx,
			"entity_extraction",
			"Extract organizations and locations from a declaration line",
			text,
			&res,
			opts...,
		)
		return res, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract entities: %w", err)
	}

	seen := make(map[string]struct{}, len(res.Entities))
	names := make([]string, 0, len(res.Entities))
	for _, ent := range res.Entities {
		name := strings.TrimSpace(ent.Name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	return names, nil
}
