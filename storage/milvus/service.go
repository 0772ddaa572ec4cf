package milvus

import (
	"context"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// service is the subset of the Milvus client used by Index.
type service interface {
	hasCollection(ctx context.Context, name string) (bool, error)
	createCollection(ctx context.Context, schema *entity.Schema) error
	dropCollection(ctx context.Context, name string) error
	upsert(ctx context.Context, collection string, columns ...entity.Column) error
	flush(ctx context.Context, collection string) error
	rowCount(ctx context.Context, collection string) (string, error)
	close() error
}

type sdkService struct {
	c client.Client
}

func (s sdkService) hasCollection(ctx context.Context, name string) (bool, error) {
	return s.c.HasCollection(ctx, name)
}

func (s sdkService) createCollection(ctx context.Context, schema *entity.Schema) error {
	return s.c.CreateCollection(ctx, schema, entity.DefaultShardNumber)
}

func (s sdkService) dropCollection(ctx context.Context, name string) error {
	return s.c.DropCollection(ctx, name)
}

func (s sdkService) upsert(ctx context.Context, collection string, columns ...entity.Column) error {
	_, err := s.c.Upsert(ctx, collection, "", columns...)
	return err
}

func (s sdkService) flush(ctx context.Context, collection string) error {
	return s.c.Flush(ctx, collection, false)
}

func (s sdkService) rowCount(ctx context.Context, collection string) (string, error) {
	stats, err := s.c.GetCollectionStatistics(ctx, collection)
	if err != nil {
		return "", err
	}
	return stats["row_count"], nil
}

func (s sdkService) close() error {
	return s.c.Close()
}
