// Package staging reads the documents produced by the scraping and ETL
// stages. A staging area holds register files under mps_interests/ and
// donation exports under party_funding/.
package staging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/influence/pkg/common"
	"github.com/OFFIS-RIT/influence/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	InterestsPrefix = "mps_interests"
	FundingPrefix   = "party_funding"

	defaultFetchLimit = 8
)

// Source yields staged documents in a stable order.
type Source interface {
	InterestsDocuments(ctx context.Context) ([]common.InterestsDocument, error)
	FundingRecords(ctx context.Context) ([]common.FundingRecord, error)
}

// FileStore lists and reads staged files.
type FileStore interface {
	// List returns the file names below prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, name string) ([]byte, error)
}

// FileSource decodes staged files from a FileStore. Files are fetched
// concurrently but returned in listing order.
type FileSource struct {
	files FileStore
	limit int
}

func NewFileSource(files FileStore) *FileSource {
	return &FileSource{files: files, limit: defaultFetchLimit}
}

// WithFetchLimit bounds the number of concurrent reads.
func (s *FileSource) WithFetchLimit(n int) *FileSource {
	if n > 0 {
		s.limit = n
	}
	return s
}

func (s *FileSource) fetch(ctx context.Context, prefix string, accept func(string) bool) ([]string, [][]byte, error) {
	names, err := s.files.List(ctx, prefix)
	if err != nil {
		return nil, nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	names = slices.DeleteFunc(names, func(n string) bool { return !accept(n) })

	contents := make([][]byte, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, name := range names {
		g.Go(func() error {
			data, err := s.files.Get(gctx, name)
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			contents[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return names, contents, nil
}

func (s *FileSource) InterestsDocuments(ctx context.Context) ([]common.InterestsDocument, error) {
	names, contents, err := s.fetch(ctx, InterestsPrefix, hasExt(".json"))
	if err != nil {
		return nil, err
	}
	docs := make([]common.InterestsDocument, 0, len(names))
	for i, name := range names {
		doc, err := DecodeInterests(path.Base(name), contents[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	logger.Info("[Staging] Loaded register files", "files", len(docs))
	return docs, nil
}

func (s *FileSource) FundingRecords(ctx context.Context) ([]common.FundingRecord, error) {
	names, contents, err := s.fetch(ctx, FundingPrefix, hasExt(".json", ".csv"))
	if err != nil {
		return nil, err
	}
	var records []common.FundingRecord
	for i, name := range names {
		recs, err := DecodeFunding(name, contents[i])
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	logger.Info("[Staging] Loaded donation files", "files", len(names), "records", len(records))
	return records, nil
}

func hasExt(exts ...string) func(string) bool {
	return func(name string) bool {
		return slices.Contains(exts, strings.ToLower(path.Ext(name)))
	}
}

// DecodeInterests decodes one register file. Files holding only the list
// of members get name as their file name.
func DecodeInterests(name string, data []byte) (common.InterestsDocument, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var contents []common.MemberInterest
		if err := json.Unmarshal(data, &contents); err != nil {
			return common.InterestsDocument{}, fmt.Errorf("decode %s: %w", name, err)
		}
		return common.InterestsDocument{FileName: name, Contents: contents}, nil
	}

	var doc common.InterestsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return common.InterestsDocument{}, fmt.Errorf("decode %s: %w", name, err)
	}
	if doc.FileName == "" {
		doc.FileName = name
	}
	return doc, nil
}

// DecodeFunding decodes a donation file, either a JSON array of staged
// records or an Electoral Commission CSV export.
func DecodeFunding(name string, data []byte) ([]common.FundingRecord, error) {
	if strings.EqualFold(path.Ext(name), ".csv") {
		recs, err := DecodeFundingCSV(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return recs, nil
	}
	var recs []common.FundingRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return recs, nil
}
