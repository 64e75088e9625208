// Package search keeps an Elasticsearch index of products for full-text lookup.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"

	"github.com/Skotchmaster/shop_backend/internal/models"
)

type Config struct {
	URL      string
	User     string
	Password string
	Index    string
}

type Index struct {
	es    *elasticsearch.Client
	index string
}

// NewIndex connects and checks the cluster answers.
func NewIndex(ctx context.Context, cfg Config) (*Index, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("search: client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("search: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search: info: %s: %s", res.Status(), body)
	}
	return &Index{es: client, index: cfg.Index}, nil
}

type document struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	Status      string   `json:"status"`
	Features    []string `json:"features,omitempty"`
}

func toDocument(p *models.Product) document {
	price, _ := p.Price.Float64()
	return document{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Category:    p.CategoryID.String(),
		Price:       price,
		Stock:       p.Stock,
		Status:      string(p.Status),
		Features:    p.Features,
	}
}

func (ix *Index) Upsert(ctx context.Context, p *models.Product) error {
	body, err := json.Marshal(toDocument(p))
	if err != nil {
		return err
	}
	res, err := ix.es.Index(ix.index, bytes.NewReader(body),
		ix.es.Index.WithContext(ctx),
		ix.es.Index.WithDocumentID(p.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("search: index %s: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("search: index %s: %s", p.ID, res.Status())
	}
	return nil
}

func (ix *Index) Remove(ctx context.Context, id uuid.UUID) error {
	res, err := ix.es.Delete(ix.index, id.String(), ix.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("search: delete %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("search: delete %s: %s", id, res.Status())
	}
	return nil
}

// Search returns the total hit count and the matching product ids in score order.
func (ix *Index) Search(ctx context.Context, query string, from, size int) (int64, []uuid.UUID, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"_source": []string{"id"},
		"from":    from,
		"size":    size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := ix.es.Search(
		ix.es.Search.WithContext(ctx),
		ix.es.Search.WithIndex(ix.index),
		ix.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: query: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("search: query: %s: %s", res.Status(), strings.TrimSpace(string(msg)))
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("search: decode: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return r.Hits.Total.Value, ids, nil
}
