// Package ddb implements the repository interfaces using AWS DynamoDB.
// This is the only layer that should have knowledge of DynamoDB specifics.
//
// Everything lives in one table under a per-user partition key:
//
//	PK = USER#<userID>
//	SK = CAPABILITY#<id>           capability profile rows
//	SK = INTEREST#MEMORY#<id>      interests extracted from notes
//	SK = INTEREST#ARTICLE#<id>     interests extracted from articles
//	SK = COMBO#<sorted-id-key>     capability combination usage
//	SK = SUGGESTION#<ts>#<id>      persisted suggestions, time-ordered
//	SK = MEMORY#<ts>#<id>          embedded memory records
package ddb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"polymath-backend/internal/domain"
	"polymath-backend/internal/repository"
	appErrors "polymath-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	skCapabilityPrefix     = "CAPABILITY#"
	skMemoryInterestPrefix = "INTEREST#MEMORY#"
	skArticleInterestPref  = "INTEREST#ARTICLE#"
	skComboPrefix          = "COMBO#"
	skSuggestionPrefix     = "SUGGESTION#"
	skMemoryPrefix         = "MEMORY#"
)

// ddbCapability represents a capability item in DynamoDB.
type ddbCapability struct {
	PK            string  `dynamodbav:"PK"`
	SK            string  `dynamodbav:"SK"`
	CapabilityID  string  `dynamodbav:"CapabilityID"`
	Name          string  `dynamodbav:"Name"`
	Description   string  `dynamodbav:"Description"`
	Strength      float64 `dynamodbav:"Strength"`
	SourceProject string  `dynamodbav:"SourceProject"`
}

// ddbInterest represents an interest item written by the extraction pipeline.
type ddbInterest struct {
	PK         string  `dynamodbav:"PK"`
	SK         string  `dynamodbav:"SK"`
	InterestID string  `dynamodbav:"InterestID"`
	Name       string  `dynamodbav:"Name"`
	Type       string  `dynamodbav:"Type"`
	Strength   float64 `dynamodbav:"Strength"`
	Mentions   int     `dynamodbav:"Mentions"`
}

// ddbCombination represents a capability combination usage item.
type ddbCombination struct {
	PK                 string   `dynamodbav:"PK"`
	SK                 string   `dynamodbav:"SK"`
	CapabilityIDs      []string `dynamodbav:"CapabilityIDs"`
	TimesSuggested     int      `dynamodbav:"TimesSuggested"`
	TimesRatedNegative int      `dynamodbav:"TimesRatedNegative"`
	PenaltyScore       float64  `dynamodbav:"PenaltyScore"`
	LastSuggestedAt    string   `dynamodbav:"LastSuggestedAt"`
}

// ddbSuggestion represents a persisted suggestion item.
type ddbSuggestion struct {
	PK               string    `dynamodbav:"PK"`
	SK               string    `dynamodbav:"SK"`
	SuggestionID     string    `dynamodbav:"SuggestionID"`
	UserID           string    `dynamodbav:"UserID"`
	Status           string    `dynamodbav:"Status"`
	Title            string    `dynamodbav:"Title"`
	Description      string    `dynamodbav:"Description"`
	Reasoning        string    `dynamodbav:"Reasoning"`
	CapabilityIDs    []string  `dynamodbav:"CapabilityIDs"`
	MemoryIDs        []string  `dynamodbav:"MemoryIDs"`
	NoveltyScore     float64   `dynamodbav:"NoveltyScore"`
	FeasibilityScore float64   `dynamodbav:"FeasibilityScore"`
	InterestScore    float64   `dynamodbav:"InterestScore"`
	TotalPoints      int       `dynamodbav:"TotalPoints"`
	IsWildcard       bool      `dynamodbav:"IsWildcard"`
	Embedding        []float32 `dynamodbav:"Embedding,omitempty"`
	CreatedAt        string    `dynamodbav:"CreatedAt"`
}

// ddbMemory represents an embedded memory record used for alignment scoring.
type ddbMemory struct {
	PK        string    `dynamodbav:"PK"`
	SK        string    `dynamodbav:"SK"`
	MemoryID  string    `dynamodbav:"MemoryID"`
	Text      string    `dynamodbav:"Text"`
	Embedding []float32 `dynamodbav:"Embedding"`
}

// ddbStore is the concrete implementation for DynamoDB.
type ddbStore struct {
	dbClient *dynamodb.Client
	config   repository.Config
}

// NewStore creates a new instance of the DynamoDB store.
func NewStore(dbClient *dynamodb.Client, tableName string) repository.Store {
	return &ddbStore{
		dbClient: dbClient,
		config:   repository.NewConfig(tableName),
	}
}

func userPK(userID string) string {
	return fmt.Sprintf("USER#%s", userID)
}

// queryPrefix runs a key-condition query for one SK prefix under the user's
// partition.
func (s *ddbStore) queryPrefix(ctx context.Context, userID, prefix string, limit int, descending bool) ([]map[string]types.AttributeValue, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(userPK(userID))).
		And(expression.Key("SK").BeginsWith(prefix))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to build query expression")
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(!descending),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	out, err := s.dbClient.Query(ctx, input)
	if err != nil {
		return nil, appErrors.Wrap(err, fmt.Sprintf("query for %q items failed", prefix))
	}
	return out.Items, nil
}

// FindCapabilities returns the user's capabilities ordered by strength
// descending. Capability rows are keyed by ID, so the ordering happens here.
func (s *ddbStore) FindCapabilities(ctx context.Context, userID string) ([]domain.Capability, error) {
	items, err := s.queryPrefix(ctx, userID, skCapabilityPrefix, 0, false)
	if err != nil {
		return nil, err
	}

	capabilities := make([]domain.Capability, 0, len(items))
	for _, item := range items {
		var row ddbCapability
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return nil, appErrors.Wrap(err, "failed to unmarshal capability item")
		}
		capabilities = append(capabilities, domain.Capability{
			ID:            row.CapabilityID,
			Name:          row.Name,
			Description:   row.Description,
			Strength:      row.Strength,
			SourceProject: row.SourceProject,
		})
	}

	sort.SliceStable(capabilities, func(i, j int) bool {
		return capabilities[i].Strength > capabilities[j].Strength
	})
	return capabilities, nil
}

func (s *ddbStore) findInterests(ctx context.Context, userID, prefix string) ([]domain.Interest, error) {
	items, err := s.queryPrefix(ctx, userID, prefix, 0, false)
	if err != nil {
		return nil, err
	}

	interests := make([]domain.Interest, 0, len(items))
	for _, item := range items {
		var row ddbInterest
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return nil, appErrors.Wrap(err, "failed to unmarshal interest item")
		}
		interests = append(interests, domain.Interest{
			ID:       row.InterestID,
			Name:     row.Name,
			Type:     row.Type,
			Strength: row.Strength,
			Mentions: row.Mentions,
		})
	}
	return interests, nil
}

// FindMemoryInterests returns interests extracted from personal notes.
func (s *ddbStore) FindMemoryInterests(ctx context.Context, userID string) ([]domain.Interest, error) {
	return s.findInterests(ctx, userID, skMemoryInterestPrefix)
}

// FindArticleInterests returns interests extracted from read articles.
func (s *ddbStore) FindArticleInterests(ctx context.Context, userID string) ([]domain.Interest, error) {
	return s.findInterests(ctx, userID, skArticleInterestPref)
}

// FindCombination looks up the usage record for a sorted combination key.
func (s *ddbStore) FindCombination(ctx context.Context, userID, key string) (*domain.CapabilityCombination, error) {
	out, err := s.dbClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: skComboPrefix + key},
		},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to get combination item")
	}
	if len(out.Item) == 0 {
		return nil, appErrors.NewNotFound(fmt.Sprintf("combination %s not found", key))
	}

	var row ddbCombination
	if err := attributevalue.UnmarshalMap(out.Item, &row); err != nil {
		return nil, appErrors.Wrap(err, "failed to unmarshal combination item")
	}

	combo := &domain.CapabilityCombination{
		CapabilityIDs:      row.CapabilityIDs,
		TimesSuggested:     row.TimesSuggested,
		TimesRatedNegative: row.TimesRatedNegative,
		PenaltyScore:       row.PenaltyScore,
	}
	if row.LastSuggestedAt != "" {
		if ts, parseErr := time.Parse(time.RFC3339, row.LastSuggestedAt); parseErr == nil {
			combo.LastSuggestedAt = ts
		}
	}
	return combo, nil
}

// RecordUsage upserts the combination row for the given capability IDs. A
// fresh row is written with a conditional Put; if another run created it
// first, the conditional check fails and the counter is bumped with an
// atomic ADD expression instead of a blind overwrite.
func (s *ddbStore) RecordUsage(ctx context.Context, userID string, capabilityIDs []string) error {
	key := domain.CombinationKey(capabilityIDs)
	if key == "" {
		return appErrors.NewValidation("cannot record usage for an empty capability combination")
	}

	sortedIDs := make([]string, len(capabilityIDs))
	copy(sortedIDs, capabilityIDs)
	sort.Strings(sortedIDs)

	now := time.Now().UTC().Format(time.RFC3339)
	item, err := attributevalue.MarshalMap(ddbCombination{
		PK:              userPK(userID),
		SK:              skComboPrefix + key,
		CapabilityIDs:   sortedIDs,
		TimesSuggested:  1,
		LastSuggestedAt: now,
	})
	if err != nil {
		return appErrors.Wrap(err, "failed to marshal combination item")
	}

	_, err = s.dbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.config.TableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err == nil {
		return nil
	}

	var conditionFailed *types.ConditionalCheckFailedException
	if !errors.As(err, &conditionFailed) {
		return appErrors.Wrap(err, "failed to create combination item")
	}

	// The row already exists: increment atomically.
	update := expression.Add(expression.Name("TimesSuggested"), expression.Value(1)).
		Set(expression.Name("LastSuggestedAt"), expression.Value(now))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return appErrors.Wrap(err, "failed to build combination update expression")
	}

	_, err = s.dbClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.config.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
			"SK": &types.AttributeValueMemberS{Value: skComboPrefix + key},
		},
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return appErrors.Wrap(err, "failed to increment combination usage")
	}
	return nil
}

// CreateSuggestion inserts a new pending suggestion. The SK embeds the
// creation timestamp so recent-history queries read newest-first without a
// GSI.
func (s *ddbStore) CreateSuggestion(ctx context.Context, suggestion domain.Suggestion) error {
	createdAt := suggestion.CreatedAt.UTC()
	item, err := attributevalue.MarshalMap(ddbSuggestion{
		PK:               userPK(suggestion.UserID),
		SK:               fmt.Sprintf("%s%s#%s", skSuggestionPrefix, createdAt.Format(time.RFC3339Nano), suggestion.ID),
		SuggestionID:     suggestion.ID,
		UserID:           suggestion.UserID,
		Status:           suggestion.Status,
		Title:            suggestion.Title,
		Description:      suggestion.Description,
		Reasoning:        suggestion.Reasoning,
		CapabilityIDs:    suggestion.CapabilityIDs,
		MemoryIDs:        suggestion.MemoryIDs,
		NoveltyScore:     suggestion.NoveltyScore,
		FeasibilityScore: suggestion.FeasibilityScore,
		InterestScore:    suggestion.InterestScore,
		TotalPoints:      suggestion.TotalPoints,
		IsWildcard:       suggestion.IsWildcard,
		Embedding:        suggestion.Embedding,
		CreatedAt:        createdAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return appErrors.NewPersistence("failed to marshal suggestion item", err)
	}

	_, err = s.dbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.config.TableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return appErrors.NewPersistence(fmt.Sprintf("failed to persist suggestion %s", suggestion.ID), err)
	}
	return nil
}

// FindRecentSuggestions returns up to limit suggestions, most recent first.
func (s *ddbStore) FindRecentSuggestions(ctx context.Context, userID string, limit int) ([]domain.Suggestion, error) {
	items, err := s.queryPrefix(ctx, userID, skSuggestionPrefix, limit, true)
	if err != nil {
		return nil, err
	}

	suggestions := make([]domain.Suggestion, 0, len(items))
	for _, item := range items {
		var row ddbSuggestion
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return nil, appErrors.Wrap(err, "failed to unmarshal suggestion item")
		}
		suggestion := domain.Suggestion{
			ID:        row.SuggestionID,
			UserID:    row.UserID,
			Status:    row.Status,
			Embedding: row.Embedding,
			ProjectIdea: domain.ProjectIdea{
				Title:            row.Title,
				Description:      row.Description,
				Reasoning:        row.Reasoning,
				CapabilityIDs:    row.CapabilityIDs,
				MemoryIDs:        row.MemoryIDs,
				NoveltyScore:     row.NoveltyScore,
				FeasibilityScore: row.FeasibilityScore,
				InterestScore:    row.InterestScore,
				TotalPoints:      row.TotalPoints,
				IsWildcard:       row.IsWildcard,
			},
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, row.CreatedAt); parseErr == nil {
			suggestion.CreatedAt = ts
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions, nil
}

// FindRecentEmbeddings returns up to limit embedded memory records, most
// recent first.
func (s *ddbStore) FindRecentEmbeddings(ctx context.Context, userID string, limit int) ([]domain.EmbeddedRecord, error) {
	items, err := s.queryPrefix(ctx, userID, skMemoryPrefix, limit, true)
	if err != nil {
		return nil, err
	}

	records := make([]domain.EmbeddedRecord, 0, len(items))
	for _, item := range items {
		var row ddbMemory
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return nil, appErrors.Wrap(err, "failed to unmarshal memory item")
		}
		if len(row.Embedding) == 0 {
			continue
		}
		records = append(records, domain.EmbeddedRecord{
			ID:     row.MemoryID,
			Text:   row.Text,
			Vector: row.Embedding,
		})
	}
	return records, nil
}
