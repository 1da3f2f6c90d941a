package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"panta-workers/internal/pricing"
)

const DefaultQuoteIndex = "vehicle-quotes"

// QuoteIndexMapping keeps identifiers as keywords and the breakdown out of the inverted index.
const QuoteIndexMapping = `{
  "mappings": {
    "properties": {
      "quoteId":             {"type": "keyword"},
      "tenantId":            {"type": "keyword"},
      "configurationSource": {"type": "keyword"},
      "calculatedAt":        {"type": "date"},
      "vehicle": {
        "properties": {
          "year":     {"type": "integer"},
          "fuelType": {"type": "keyword"}
        }
      },
      "result": {
        "properties": {
          "basePrice":  {"type": "long"},
          "totalPrice": {"type": "long"},
          "breakdown":  {"type": "object", "enabled": false}
        }
      }
    }
  }
}`

// QuoteIndex writes calculated quotes to Elasticsearch, one document per quote id.
type QuoteIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewQuoteIndex(client *elasticsearch.Client, index string) *QuoteIndex {
	if index == "" {
		index = DefaultQuoteIndex
	}
	return &QuoteIndex{client: client, index: index}
}

func (q *QuoteIndex) IndexQuote(ctx context.Context, rec pricing.QuoteRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal quote %s: %w", rec.QuoteID, err)
	}

	res, err := q.client.Index(
		q.index,
		bytes.NewReader(body),
		q.client.Index.WithDocumentID(rec.QuoteID),
		q.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index quote %s: %w", rec.QuoteID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index quote %s: %s", rec.QuoteID, res.Status())
	}
	return nil
}
