package projections

import (
	"context"
	"encoding/json"
	"time"

	"github.com/olivere/elastic"
	"github.com/pkg/errors"
	"github.com/retro-framework/go-lottery/aggregates"
	"github.com/retro-framework/go-lottery/framework/retro"
)

const (
	DefaultListingsIndex = "lotteries"
	listingType          = "listing"
)

var mapping = `
{
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 0
	},
	"mappings": {
		"listing": {
			"properties": {
				"id": {
					"type": "keyword"
				},
				"state": {
					"type": "keyword"
				},
				"participants": {
					"type": "keyword"
				},
				"winner": {
					"type": "keyword"
				},
				"updated_at": {
					"type": "date"
				}
			}
		}
	}
}`

// Listing is the document indexed per lottery.
type Listing struct {
	Summary
	Updated time.Time `json:"updated_at"`
}

// Listings indexes the summary of every lottery into elasticsearch
// whenever one of its events is published.
type Listings struct {
	client    *elastic.Client
	indexName string
	summaries *Summaries
}

func NewListings(c *elastic.Client, indexName string, b *aggregates.Behavior) *Listings {
	if indexName == "" {
		indexName = DefaultListingsIndex
	}
	return &Listings{client: c, indexName: indexName, summaries: NewSummaries(b)}
}

// EnsureIndex creates the index with its mapping unless it exists.
func (esl *Listings) EnsureIndex(ctx context.Context) error {
	exists, err := esl.client.IndexExists(esl.indexName).Do(ctx)
	if err != nil {
		return errors.Wrap(err, "listings: checking for index")
	}
	if exists {
		return nil
	}
	createIndex, err := esl.client.CreateIndex(esl.indexName).Body(mapping).Do(ctx)
	if err != nil {
		return errors.Wrap(err, "listings: creating index")
	}
	if !createIndex.Acknowledged {
		return errors.New("listings: index creation was not acknowledged")
	}
	return nil
}

func (esl *Listings) Name() string { return "listings" }

func (esl *Listings) Project(ctx context.Context, pEv retro.PersistedEvent) error {
	if err := esl.summaries.Project(ctx, pEv); err != nil {
		return err
	}
	sum, ok := esl.summaries.Get(pEv.PartitionName().ID())
	if !ok {
		return nil
	}
	_, err := esl.client.Index().
		Index(esl.indexName).
		Type(listingType).
		Id(sum.ID).
		BodyJson(Listing{Summary: sum, Updated: pEv.Time()}).
		Do(ctx)
	return errors.Wrapf(err, "listings: indexing %s", sum.ID)
}

// Finished returns the listings of finished lotteries.
func (esl *Listings) Finished(ctx context.Context) ([]Listing, error) {
	var listings []Listing
	searchResult, err := esl.client.Search().
		Index(esl.indexName).
		Query(elastic.NewTermQuery("state", aggregates.StateName(aggregates.Finished{}))).
		From(0).Size(100).
		Do(ctx)
	if err != nil {
		return listings, errors.Wrap(err, "listings: search")
	}
	for _, hit := range searchResult.Hits.Hits {
		if hit.Source == nil {
			continue
		}
		var l Listing
		if err := json.Unmarshal(*hit.Source, &l); err != nil {
			return listings, errors.Wrap(err, "listings: decoding hit")
		}
		listings = append(listings, l)
	}
	return listings, nil
}
