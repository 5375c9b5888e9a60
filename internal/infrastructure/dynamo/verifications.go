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

// VerificationRepo persists employee verification requests.
// PK: verification_id; GSI company_id-email-index for the supersede lookup.
//
// Every state transition is a single conditional UpdateItem. A failed
// condition surfaces as domain.ErrConflict so the caller can re-read and
// report the terminal state it lost to; a plain read-then-write here would
// allow attempt-limit bypass and double redemption of one code.
type VerificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewVerificationRepo(client *dynamodb.Client, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName}
}

// Create inserts a new PENDING request. The id is freshly generated by the
// caller, so an existing item under the same key is a hard failure.
func (r *VerificationRepo) Create(ctx context.Context, v *domain.EmployeeVerification) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(verification_id)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("verification id collision: %w", domain.ErrConflict)
		}
		return fmt.Errorf("put verification: %w", err)
	}
	return nil
}

func (r *VerificationRepo) Get(ctx context.Context, verificationID string) (*domain.EmployeeVerification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("verification_id", verificationID),
	})
	if err != nil {
		return nil, fmt.Errorf("get verification: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	var v domain.EmployeeVerification
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// FindPending returns the live PENDING request for (companyID, email), or
// ErrNotFound. At most one such request exists at a time: Start supersedes
// instead of duplicating.
func (r *VerificationRepo) FindPending(ctx context.Context, companyID, email string, now time.Time) (*domain.EmployeeVerification, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("company_id-email-index"),
		KeyConditionExpression: aws.String("company_id = :c AND email = :e"),
		FilterExpression:       aws.String("#status = :pending AND code_expires_at > :now"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c":       &types.AttributeValueMemberS{Value: companyID},
			":e":       &types.AttributeValueMemberS{Value: email},
			":pending": &types.AttributeValueMemberS{Value: domain.VerificationPending},
			":now":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Unix())},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query pending verification: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("pending verification not found: %w", domain.ErrNotFound)
	}
	var v domain.EmployeeVerification
	if err := attributevalue.UnmarshalMap(out.Items[0], &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// SupersedeCode atomically replaces the live code of a still-PENDING,
// unexpired request and resets its attempt counter. The prior code stops
// matching the instant this commits. ErrConflict means the request finalized
// or expired underneath us.
func (r *VerificationRepo) SupersedeCode(ctx context.Context, verificationID, codeHash string, expiresAt, now time.Time) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("verification_id", verificationID),
		UpdateExpression:    aws.String("SET code_hash = :h, code_expires_at = :exp, attempts = :zero, updated_at = :u"),
		ConditionExpression: aws.String("#status = :pending AND code_expires_at > :now"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":h":       &types.AttributeValueMemberS{Value: codeHash},
			":exp":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
			":zero":    &types.AttributeValueMemberN{Value: "0"},
			":u":       &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339)},
			":pending": &types.AttributeValueMemberS{Value: domain.VerificationPending},
			":now":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Unix())},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("verification no longer supersedable: %w", domain.ErrConflict)
		}
		return fmt.Errorf("supersede code: %w", err)
	}
	return nil
}

// IncrementAttempts adds one failed attempt and returns the new counter.
// The condition keeps the counter a ceiling rather than an ever-growing
// tally, and never moves it on a finalized request.
func (r *VerificationRepo) IncrementAttempts(ctx context.Context, verificationID string, maxAttempts int) (int, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("verification_id", verificationID),
		UpdateExpression:    aws.String("SET attempts = attempts + :one, updated_at = :u"),
		ConditionExpression: aws.String("#status = :pending AND attempts < :max"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":     &types.AttributeValueMemberN{Value: "1"},
			":max":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", maxAttempts)},
			":u":       &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
			":pending": &types.AttributeValueMemberS{Value: domain.VerificationPending},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return 0, fmt.Errorf("attempt ceiling reached or request finalized: %w", domain.ErrConflict)
		}
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	var updated struct {
		Attempts int `dynamodbav:"attempts"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return 0, err
	}
	return updated.Attempts, nil
}

// MarkExpired transitions PENDING -> EXPIRED. Exactly one concurrent caller
// wins; the rest get ErrConflict and must treat the request as finalized.
func (r *VerificationRepo) MarkExpired(ctx context.Context, verificationID string) error {
	return r.transition(ctx, verificationID, map[string]types.AttributeValue{
		":to": &types.AttributeValueMemberS{Value: domain.VerificationExpired},
	}, "SET #status = :to, updated_at = :u")
}

// Finalize transitions PENDING -> VERIFIED and stamps verified_at. This is
// the single point of truth for "has this code been consumed": two racing
// correct submissions produce exactly one success.
func (r *VerificationRepo) Finalize(ctx context.Context, verificationID string, verifiedAt time.Time) error {
	return r.transition(ctx, verificationID, map[string]types.AttributeValue{
		":to": &types.AttributeValueMemberS{Value: domain.VerificationVerified},
		":at": &types.AttributeValueMemberS{Value: verifiedAt.UTC().Format(time.RFC3339)},
	}, "SET #status = :to, verified_at = :at, updated_at = :u")
}

// BindUser records the identity a finalized request authorized.
func (r *VerificationRepo) BindUser(ctx context.Context, verificationID, userID string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"bound_user_id": userID,
		"updated_at":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("verification_id", verificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		return fmt.Errorf("bind user: %w", err)
	}
	return nil
}

func (r *VerificationRepo) transition(ctx context.Context, verificationID string, values map[string]types.AttributeValue, expr string) error {
	values[":pending"] = &types.AttributeValueMemberS{Value: domain.VerificationPending}
	values[":u"] = &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)}
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("verification_id", verificationID),
		UpdateExpression:    aws.String(expr),
		ConditionExpression: aws.String("#status = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("verification already finalized: %w", domain.ErrConflict)
		}
		return fmt.Errorf("transition verification: %w", err)
	}
	return nil
}
