package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"era-intake/internal/common/logger"
	"era-intake/internal/formspec"
	"era-intake/internal/models"
)

func newTestIndexer(t *testing.T, handler http.HandlerFunc) *Indexer {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return NewIndexer(client, "rental-applications", logger.NewTestLogger(t))
}

func submittedApp() *models.Application {
	return &models.Application{
		ID:     "app-1",
		Status: models.StatusSubmitted,
		Core: models.Core{
			Applicant: &models.Applicant{FirstName: "Ana", LastName: "Ruiz", Email: "ana@example.org"},
			Housing:   &models.Housing{City: "Dayton", State: "OH", Zip: "45402", MonthlyRent: models.NewNumber(1000), MonthsBehind: models.NewNumber(2)},
			Household: &models.Household{Size: 3},
		},
		DynamicSpec:    &formspec.Spec{Title: "Follow-up"},
		DynamicAnswers: formspec.Answers{"priority_groups": []string{"dv"}},
		UpdatedAt:      time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument(submittedApp())
	assert.Equal(t, "Ana Ruiz", doc.ApplicantName)
	assert.Equal(t, 2000.0, doc.TotalRentOwed)
	assert.Equal(t, 3, doc.HouseholdSize)
	assert.Equal(t, "Follow-up", doc.Questionnaire)
	assert.Equal(t, "2026-10-01T12:00:00Z", doc.SubmittedAt)
}

func TestIndexer_IndexApplication(t *testing.T) {
	var got Document
	idx := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/rental-applications/_doc/app-1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"_index":"rental-applications","_id":"app-1","result":"created"}`))
	})

	require.NoError(t, idx.IndexApplication(context.Background(), submittedApp()))
	assert.Equal(t, "app-1", got.ApplicationID)
	assert.Equal(t, "submitted", got.Status)
	assert.Equal(t, "OH", got.State)
}

func TestIndexer_IndexApplication_Error(t *testing.T) {
	idx := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"mapper_parsing_exception"},"status":400}`))
	})

	err := idx.IndexApplication(context.Background(), submittedApp())
	assert.ErrorIs(t, err, ErrSearchIndexFailed)
}

func TestIndexer_EnsureIndex(t *testing.T) {
	t.Run("exists", func(t *testing.T) {
		calls := 0
		idx := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			assert.Equal(t, http.MethodHead, r.Method)
			w.WriteHeader(http.StatusOK)
		})
		require.NoError(t, idx.EnsureIndex(context.Background()))
		assert.Equal(t, 1, calls)
	})

	t.Run("created", func(t *testing.T) {
		var created bool
		idx := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/rental-applications", r.URL.Path)
			created = true
			w.Write([]byte(`{"acknowledged":true}`))
		})
		require.NoError(t, idx.EnsureIndex(context.Background()))
		assert.True(t, created)
	})

	t.Run("lost race", func(t *testing.T) {
		idx := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"type":"resource_already_exists_exception"},"status":400}`))
		})
		require.NoError(t, idx.EnsureIndex(context.Background()))
	})
}
