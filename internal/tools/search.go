package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/hollisb/patter/internal/domain"
	"github.com/hollisb/patter/internal/store"
)

// SearchDocsInput is the input for the search_docs tool.
type SearchDocsInput struct {
	Query string `json:"query" jsonschema_description:"Search terms matched fuzzily against document titles."`
	Limit int    `json:"limit,omitempty" jsonschema_description:"Maximum results to return (default 3)."`
}

const defaultSearchLimit = 3

// NewSearchDocs builds the search_docs tool backed by st.
func NewSearchDocs(st store.Store) Tool {
	return Tool{
		Manifest: domain.ToolManifest{
			Name:        "search_docs",
			Description: "Search the knowledge corpus by fuzzy-matching document titles. Returns the best matches, ranked.",
			InputSchema: GenerateSchema[SearchDocsInput](),
			Examples:    []string{`{"query":"sessions"}`, `{"query":"task","limit":5}`},
			Categories:  []string{"docs"},
		},
		Execute: func(ctx context.Context, input json.RawMessage) Result {
			var in SearchDocsInput
			if err := json.Unmarshal(input, &in); err != nil {
				return Failure(fmt.Sprintf("invalid input: %v", err))
			}
			if strings.TrimSpace(in.Query) == "" {
				return Failure("query is required")
			}
			limit := in.Limit
			if limit <= 0 {
				limit = defaultSearchLimit
			}

			docs, err := st.ListDocuments(ctx)
			if err != nil {
				return Failure(fmt.Sprintf("failed to load corpus: %v", err))
			}

			keys := make([]string, len(docs))
			for i, doc := range docs {
				keys[i] = strings.ToLower(doc.Title)
			}
			results := fuzzy.Find(strings.ToLower(strings.TrimSpace(in.Query)), keys)
			sort.SliceStable(results, func(i, j int) bool {
				if results[i].Score == results[j].Score {
					return docs[results[i].Index].Title < docs[results[j].Index].Title
				}
				return results[i].Score > results[j].Score
			})

			matches := make([]domain.Document, 0, limit)
			for _, res := range results {
				matches = append(matches, docs[res.Index])
				if len(matches) == limit {
					break
				}
			}
			return Success(matches, nil, TraceStep{
				Title:  "searched corpus",
				Detail: fmt.Sprintf("%d documents, %d matched", len(docs), len(results)),
			})
		},
	}
}
