// internal/catalog/elasticsearch.go
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/database"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/errors"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/models"
)

// MaxIndexedPlaces is the largest catalog one search page can return
// (the default index.max_result_window).
const MaxIndexedPlaces = 10000

const indexMapping = `{
	"mappings": {
		"properties": {
			"ordinal":            {"type": "integer"},
			"place_id":           {"type": "keyword"},
			"name":               {"type": "text"},
			"type":               {"type": "keyword"},
			"district":           {"type": "keyword"},
			"indoor":             {"type": "boolean"},
			"noise":              {"type": "byte"},
			"romantic":           {"type": "byte"},
			"budget_level":       {"type": "byte"},
			"walk_score":         {"type": "float"},
			"alcohol_available":  {"type": "boolean"},
			"extrovert_friendly": {"type": "keyword"},
			"tags":               {"type": "keyword"}
		}
	}
}`

// indexedPlace is the document stored per place; ordinal preserves catalog order.
type indexedPlace struct {
	Ordinal int `json:"ordinal"`
	models.Place
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source indexedPlace `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type bulkResponse struct {
	Errors bool                                `json:"errors"`
	Items  []map[string]bulkResponseItemResult `json:"items"`
}

type bulkResponseItemResult struct {
	ID     string          `json:"_id"`
	Status int             `json:"status"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// ElasticsearchSource reads an index written by PublishElasticsearch, sorted
// by ordinal.
type ElasticsearchSource struct {
	Client *database.ElasticsearchClient
	Index  string
}

func NewElasticsearchSource(client *database.ElasticsearchClient, index string) *ElasticsearchSource {
	return &ElasticsearchSource{Client: client, Index: index}
}

func (s *ElasticsearchSource) Describe() string {
	return "elasticsearch:" + s.Index
}

func (s *ElasticsearchSource) Load(ctx context.Context) (*Catalog, error) {
	query := map[string]interface{}{
		"query":            map[string]interface{}{"match_all": map[string]interface{}{}},
		"sort":             []interface{}{map[string]interface{}{"ordinal": map[string]interface{}{"order": "asc"}}},
		"size":             MaxIndexedPlaces,
		"track_total_hits": true,
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, errors.NewDataUnavailableError(s.Describe(), err)
	}

	es := s.Client.Client
	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(s.Index),
		es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, errors.NewDataUnavailableError(s.Describe(), err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, errors.NewDataUnavailableError(s.Describe(), fmt.Errorf("index %q not found", s.Index))
	}
	if res.IsError() {
		return nil, errors.NewDataUnavailableError(s.Describe(), fmt.Errorf("search failed: %s", res.Status()))
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, errors.NewDataUnavailableError(s.Describe(), fmt.Errorf("decode search response: %w", err))
	}
	if r.Hits.Total.Value > len(r.Hits.Hits) {
		return nil, errors.NewDataUnavailableError(s.Describe(),
			fmt.Errorf("index holds %d places, more than one page of %d", r.Hits.Total.Value, MaxIndexedPlaces))
	}

	places := make([]models.Place, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		places = append(places, hit.Source.Place)
	}

	cat, err := New(s.Describe(), places)
	if err != nil {
		return nil, errors.NewDataUnavailableError(s.Describe(), err)
	}
	return cat, nil
}

// PublishElasticsearch recreates index and bulk loads cat into it. Readers see
// a missing or partial index until the bulk request returns.
func PublishElasticsearch(ctx context.Context, client *database.ElasticsearchClient, index string, cat *Catalog) error {
	es := client.Client

	res, err := es.Indices.Delete([]string{index},
		es.Indices.Delete.WithContext(ctx),
		es.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete index: %s", res.Status())
	}

	res, err = es.Indices.Create(index,
		es.Indices.Create.WithContext(ctx),
		es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index: %s", res.Status())
	}

	if cat.Len() == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, p := range cat.places {
		meta := map[string]interface{}{"index": map[string]interface{}{"_id": p.ID}}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("encode bulk meta: %w", err)
		}
		if err := enc.Encode(indexedPlace{Ordinal: i, Place: p}); err != nil {
			return fmt.Errorf("encode place %s: %w", p.ID, err)
		}
	}

	req := esapi.BulkRequest{
		Index:   index,
		Body:    &buf,
		Refresh: "true",
	}
	res, err = req.Do(ctx, es)
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk index: %s", res.Status())
	}

	var r bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if r.Errors {
		for _, item := range r.Items {
			for _, result := range item {
				if result.Status >= http.StatusBadRequest {
					return fmt.Errorf("bulk index place %s: status %d: %s", result.ID, result.Status, string(result.Error))
				}
			}
		}
		return fmt.Errorf("bulk index reported errors")
	}
	return nil
}
