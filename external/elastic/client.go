package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/transx/mining-ledger/entities"
)

type Client struct {
	index    string
	esClient *elasticsearch.Client
}

func NewClient(address, index string, timeout time.Duration) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{address},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: timeout,
		},
	}

	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %v", err)
	}

	return &Client{
		index:    index,
		esClient: esClient,
	}, nil
}

// IndexEpoch writes one frozen epoch as a single document, keyed by epoch so
// a re-archive of the same epoch overwrites rather than duplicates.
func (es *Client) IndexEpoch(ctx context.Context, archive entities.EpochArchive) error {
	var buf bytes.Buffer

	meta := []byte(fmt.Sprintf(`{ "index": { "_index": "%s", "_id": "%d" } }%s`, es.index, archive.Epoch, "\n"))
	buf.Write(meta)

	data, err := json.Marshal(archive)
	if err != nil {
		return fmt.Errorf("error serializing epoch archive: %w", err)
	}
	buf.Write(data)
	buf.Write([]byte("\n"))

	res, err := es.esClient.Bulk(bytes.NewReader(buf.Bytes()), es.esClient.Bulk.WithRefresh("true"))
	if err != nil {
		return fmt.Errorf("bulk request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk request error: %s", res.String())
	}

	return nil
}
