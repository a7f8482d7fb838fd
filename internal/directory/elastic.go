package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/accounts/internal/models"
)

type ElasticConfig struct {
	URL      string
	Username string
	Password string
	Index    string
}

type Elastic struct {
	es    *elasticsearch.Client
	index string
}

// NewElastic connects and checks the cluster answers before returning.
func NewElastic(ctx context.Context, cfg ElasticConfig) (*Elastic, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("elasticsearch: url is required")
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("elasticsearch: index is required")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: new client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch: info: %s: %s", res.Status(), body)
	}

	return &Elastic{es: client, index: cfg.Index}, nil
}

func (e *Elastic) Index(ctx context.Context, a *models.Account) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(EntryFromAccount(a)); err != nil {
		return fmt.Errorf("elasticsearch: encode: %w", err)
	}

	res, err := e.es.Index(
		e.index,
		&buf,
		e.es.Index.WithContext(ctx),
		e.es.Index.WithDocumentID(a.ID),
		e.es.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch: index: %s", res.Status())
	}
	return nil
}

func (e *Elastic) Remove(ctx context.Context, id string) error {
	res, err := e.es.Delete(
		e.index,
		id,
		e.es.Delete.WithContext(ctx),
		e.es.Delete.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: delete: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch: delete: %s", res.Status())
	}
	return nil
}

func (e *Elastic) Search(ctx context.Context, query string, from, size int) (Result, error) {
	var q map[string]any
	if query == "" {
		q = map[string]any{"match_all": map[string]any{}}
	} else {
		q = map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"email^2", "profile.name"},
				"fuzziness": "AUTO",
			},
		}
	}
	body := map[string]any{
		"query": q,
		"from":  from,
		"size":  size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return Result{}, fmt.Errorf("elasticsearch: encode: %w", err)
	}

	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(e.index),
		e.es.Search.WithBody(&buf),
	)
	if err != nil {
		return Result{}, fmt.Errorf("elasticsearch: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return Result{}, fmt.Errorf("elasticsearch: search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Entry `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return Result{}, fmt.Errorf("elasticsearch: decode: %w", err)
	}

	entries := make([]Entry, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		entries[i] = hit.Source
	}
	return Result{Total: r.Hits.Total.Value, Entries: entries}, nil
}
