package mongo

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/influence/pkg/common"
	"github.com/OFFIS-RIT/influence/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	InterestsCollection = "mps_interests"
	FundingCollection   = "parsed_party_funding"
)

// CacheSource reads staged documents from the MongoDB staging cache. The
// scrapers write one document per register file and the donation ETL one
// document per donation.
type CacheSource struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewCacheSourceParams configures the staging cache connection.
type NewCacheSourceParams struct {
	URI      string
	Database string
}

func NewCacheSource(ctx context.Context, params NewCacheSourceParams) (*CacheSource, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(params.URI))
	if err != nil {
		return nil, fmt.Errorf("connect staging cache: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping staging cache: %w", err)
	}
	return NewCacheSourceWithClient(client, params.Database), nil
}

func NewCacheSourceWithClient(client *mongo.Client, database string) *CacheSource {
	return &CacheSource{client: client, db: client.Database(database)}
}

// insertion order
var byID = options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

func (s *CacheSource) InterestsDocuments(ctx context.Context) ([]common.InterestsDocument, error) {
	cur, err := s.db.Collection(InterestsCollection).Find(ctx, bson.D{}, byID)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", InterestsCollection, err)
	}
	var docs []common.InterestsDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", InterestsCollection, err)
	}
	logger.Info("[Staging] Loaded register documents", "collection", InterestsCollection, "documents", len(docs))
	return docs, nil
}

func (s *CacheSource) FundingRecords(ctx context.Context) ([]common.FundingRecord, error) {
	cur, err := s.db.Collection(FundingCollection).Find(ctx, bson.D{}, byID)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", FundingCollection, err)
	}
	var recs []common.FundingRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", FundingCollection, err)
	}
	logger.Info("[Staging] Loaded donation documents", "collection", FundingCollection, "documents", len(recs))
	return recs, nil
}

func (s *CacheSource) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
