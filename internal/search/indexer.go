// internal/search/indexer.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"era-intake/internal/common/logger"
	"era-intake/internal/models"
)

var ErrSearchIndexFailed = errors.New("SEARCH_INDEX_FAILED")

const indexMapping = `{
  "mappings": {
    "properties": {
      "applicationId": {"type": "keyword"},
      "status":        {"type": "keyword"},
      "applicantName": {"type": "text"},
      "email":         {"type": "keyword"},
      "language":      {"type": "keyword"},
      "city":          {"type": "keyword"},
      "state":         {"type": "keyword"},
      "zip":           {"type": "keyword"},
      "householdSize": {"type": "integer"},
      "monthlyRent":   {"type": "double"},
      "monthsBehind":  {"type": "double"},
      "totalRentOwed": {"type": "double"},
      "questionnaire": {"type": "text"},
      "answers":       {"type": "object", "enabled": false},
      "submittedAt":   {"type": "date"}
    }
  }
}`

// Document is the case-worker view of a submitted application.
type Document struct {
	ApplicationID string                 `json:"applicationId"`
	Status        string                 `json:"status"`
	ApplicantName string                 `json:"applicantName,omitempty"`
	Email         string                 `json:"email,omitempty"`
	Language      string                 `json:"language,omitempty"`
	City          string                 `json:"city,omitempty"`
	State         string                 `json:"state,omitempty"`
	Zip           string                 `json:"zip,omitempty"`
	HouseholdSize int                    `json:"householdSize,omitempty"`
	MonthlyRent   float64                `json:"monthlyRent"`
	MonthsBehind  float64                `json:"monthsBehind"`
	TotalRentOwed float64                `json:"totalRentOwed"`
	Questionnaire string                 `json:"questionnaire,omitempty"`
	Answers       map[string]interface{} `json:"answers,omitempty"`
	SubmittedAt   string                 `json:"submittedAt"`
}

// NewDocument flattens an application for indexing.
func NewDocument(app *models.Application) Document {
	doc := Document{
		ApplicationID: app.ID,
		Status:        string(app.Status),
		TotalRentOwed: app.Core.TotalRentOwed(),
		Answers:       app.DynamicAnswers,
		SubmittedAt:   app.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if a := app.Core.Applicant; a != nil {
		doc.ApplicantName = strings.TrimSpace(a.FirstName + " " + a.LastName)
		doc.Email = a.Email
		doc.Language = a.Language
	}
	if h := app.Core.Housing; h != nil {
		doc.City, doc.State, doc.Zip = h.City, h.State, h.Zip
		doc.MonthlyRent = h.MonthlyRent.Float()
		doc.MonthsBehind = h.MonthsBehind.Float()
	}
	if hh := app.Core.Household; hh != nil {
		doc.HouseholdSize = int(hh.Size)
	}
	if app.DynamicSpec != nil {
		doc.Questionnaire = app.DynamicSpec.Title
	}
	return doc
}

type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		client: client,
		index:  index,
		logger: log.With(map[string]interface{}{
			"component": "search",
			"index":     index,
		}),
	}
}

// EnsureIndex creates the index with its mapping when missing.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.index}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSearchIndexFailed, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = i.client.Indices.Create(
		i.index,
		i.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		i.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSearchIndexFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		// a concurrent creator wins the race
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("%w: create index: %s", ErrSearchIndexFailed, res.Status())
	}

	i.logger.Info("search index created", nil)
	return nil
}

// IndexApplication writes the application under its id, replacing any earlier copy.
func (i *Indexer) IndexApplication(ctx context.Context, app *models.Application) error {
	body, err := json.Marshal(NewDocument(app))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSearchIndexFailed, err)
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithDocumentID(app.ID),
		i.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSearchIndexFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrSearchIndexFailed, res.String())
	}

	i.logger.Info("application indexed", map[string]interface{}{
		"applicationId": app.ID,
	})
	return nil
}
