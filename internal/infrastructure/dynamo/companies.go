package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/corpdeals-api/internal/domain"
)

// CompanyRepo provides typed DynamoDB operations for the companies table.
type CompanyRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewCompanyRepo(client *dynamodb.Client, tableName string) *CompanyRepo {
	return &CompanyRepo{client: client, tableName: tableName}
}

func (r *CompanyRepo) Put(ctx context.Context, c *domain.Company) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal company: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put company: %w", err)
	}
	return nil
}

func (r *CompanyRepo) Get(ctx context.Context, companyID string) (*domain.Company, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("company_id", companyID),
	})
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("company not found: %w", domain.ErrNotFound)
	}
	var c domain.Company
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetBySlug looks a company up through the slug-index GSI.
func (r *CompanyRepo) GetBySlug(ctx context.Context, slug string) (*domain.Company, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("slug-index"),
		KeyConditionExpression:    aws.String("slug = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: slug}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query company by slug: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("company not found: %w", domain.ErrNotFound)
	}
	var c domain.Company
	if err := attributevalue.UnmarshalMap(out.Items[0], &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Scan returns all companies, optionally filtered by verified state.
// The directory is small and read-mostly; search filtering happens in the
// service layer where it can be case-insensitive.
func (r *CompanyRepo) Scan(ctx context.Context, verified *bool) ([]domain.Company, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(r.tableName)}
	if verified != nil {
		input.FilterExpression = aws.String("verified = :v")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberBOOL{Value: *verified},
		}
	}
	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("scan companies: %w", err)
	}
	var companies []domain.Company
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *CompanyRepo) Update(ctx context.Context, companyID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("company_id", companyID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ConditionExpression:       aws.String("attribute_exists(company_id)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("company not found: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("update company: %w", err)
	}
	return nil
}
