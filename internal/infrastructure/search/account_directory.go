package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"
)

// AccountDoc is the searchable projection of an activated account.
// It never carries credentials or token digests.
type AccountDoc struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	ActivatedAt time.Time `json:"activated_at"`
}

// AccountDirectory indexes and searches accounts in Elasticsearch.
// A nil client turns every call into a no-op.
type AccountDirectory struct {
	ES      *elasticsearch.Client
	Index   string
	Timeout time.Duration
	Logger  logrus.FieldLogger
}

func NewAccountDirectory(es *elasticsearch.Client, index string, logger logrus.FieldLogger) *AccountDirectory {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AccountDirectory{ES: es, Index: index, Timeout: 3 * time.Second, Logger: logger}
}

func (d *AccountDirectory) Enabled() bool { return d != nil && d.ES != nil && d.Index != "" }

func (d *AccountDirectory) Put(ctx context.Context, doc AccountDoc) error {
	if !d.Enabled() {
		return nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: d.Index, DocumentID: doc.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()
	res, err := req.Do(c, d.ES)
	if err != nil {
		d.Logger.WithError(err).WithField("user_id", doc.ID).Warn("es index failed")
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		d.Logger.WithField("status", res.Status()).WithField("user_id", doc.ID).Warn("es index response error")
		return fmt.Errorf("es index: %s", res.Status())
	}
	return nil
}

// Search performs a simple multi_match search on username and email.
func (d *AccountDirectory) Search(ctx context.Context, q string, size int) ([]AccountDoc, error) {
	if !d.Enabled() {
		return []AccountDoc{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^2", "email"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	res, err := d.ES.Search(
		d.ES.Search.WithContext(c),
		d.ES.Search.WithIndex(d.Index),
		d.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string     `json:"_id"`
				Source AccountDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]AccountDoc, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
