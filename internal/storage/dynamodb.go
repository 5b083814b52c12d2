package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// batchWriteLimit is the DynamoDB cap on requests per BatchWriteItem call.
const batchWriteLimit = 25

// DynamoAPI is the subset of *dynamodb.Client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type recordItem struct {
	Key       string `dynamodbav:"key"`
	Value     string `dynamodbav:"value"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// DynamoStore keeps records in a table whose partition key is "key" (string).
type DynamoStore struct {
	ddb       DynamoAPI
	tableName string
	now       func() time.Time
}

var _ Store = (*DynamoStore)(nil)

func NewDynamoStore(ddb DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{ddb: ddb, tableName: tableName, now: time.Now}
}

// NewDynamoClient builds a client for region. A non-empty endpoint targets a
// local DynamoDB, which still needs (ignored) static credentials.
func NewDynamoClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if endpoint != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func (s *DynamoStore) keyAttr(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"key": &types.AttributeValueMemberS{Value: key},
	}
}

func (s *DynamoStore) Get(ctx context.Context, key string) (string, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.keyAttr(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", err
	}
	if len(out.Item) == 0 {
		return "", ErrNotFound
	}

	var it recordItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return "", err
	}
	return it.Value, nil
}

func (s *DynamoStore) Set(ctx context.Context, key, value string) error {
	av, err := attributevalue.MarshalMap(recordItem{
		Key:       key,
		Value:     value,
		UpdatedAt: s.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	return err
}

func (s *DynamoStore) Remove(ctx context.Context, key string) error {
	_, err := s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.keyAttr(key),
	})
	return err
}

func (s *DynamoStore) RemoveMany(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += batchWriteLimit {
		end := min(start+batchWriteLimit, len(keys))

		reqs := make([]types.WriteRequest, 0, end-start)
		for _, k := range keys[start:end] {
			reqs = append(reqs, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: s.keyAttr(k)},
			})
		}

		if err := s.batchDelete(ctx, reqs); err != nil {
			return err
		}
	}
	return nil
}

// batchDelete sends one batch and re-sends what DynamoDB left unprocessed
// once. Keys still left after that are reported.
func (s *DynamoStore) batchDelete(ctx context.Context, reqs []types.WriteRequest) error {
	items := map[string][]types.WriteRequest{s.tableName: reqs}
	for attempt := 0; attempt < 2; attempt++ {
		out, err := s.ddb.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: items})
		if err != nil {
			return err
		}
		items = out.UnprocessedItems
		if len(items[s.tableName]) == 0 {
			return nil
		}
	}
	return fmt.Errorf("dynamodb batch delete left %d unprocessed keys", len(items[s.tableName]))
}

func (s *DynamoStore) Keys(ctx context.Context) ([]string, error) {
	p := dynamodb.NewScanPaginator(s.ddb, &dynamodb.ScanInput{
		TableName:                aws.String(s.tableName),
		ProjectionExpression:     aws.String("#k"),
		ExpressionAttributeNames: map[string]string{"#k": "key"},
	})

	var keys []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			var it recordItem
			if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
				return nil, err
			}
			keys = append(keys, it.Key)
		}
	}
	return keys, nil
}
