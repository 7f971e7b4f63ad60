package elasticsearch

import (
	"context"

	"github.com/elastic/go-elasticsearch/v8"
	elastictypes "github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"hermannm.dev/gaquery/config"
	"hermannm.dev/wrap"
)

// Implements sink.Sink for Elasticsearch, with one index per table.
type ElasticsearchSink struct {
	client *elasticsearch.TypedClient
}

func NewElasticsearchSink(config config.Elasticsearch) (ElasticsearchSink, error) {
	client, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Addresses:         []string{config.Address},
		EnableDebugLogger: config.Debug,
	})
	if err != nil {
		return ElasticsearchSink{}, wrap.Error(err, "failed to connect to Elasticsearch")
	}

	return ElasticsearchSink{client: client}, nil
}

const elasticIndexNotFoundException = "index_not_found_exception"

func (elastic ElasticsearchSink) DropTable(
	ctx context.Context,
	index string,
) (alreadyDropped bool, err error) {
	if _, err := elastic.client.Indices.Delete(index).Do(ctx); err != nil {
		elasticErr, isElasticErr := err.(*elastictypes.ElasticsearchError)
		if isElasticErr && elasticErr.ErrorCause.Type == elasticIndexNotFoundException {
			return true, nil
		}

		return false, wrapElasticError(err, "delete index request failed")
	}

	return false, nil
}
