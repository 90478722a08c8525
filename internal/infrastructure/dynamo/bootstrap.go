package dynamo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lostfound-api/internal/config"
)

// Bootstrap creates all DynamoDB tables and GSIs if they don't already exist.
// Safe to call on every startup; tables that already exist are skipped.
func Bootstrap(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables) {
	createTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.Users),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			attr("user_id", types.ScalarAttributeTypeS),
			attr("username", types.ScalarAttributeTypeS),
		},
		KeySchema: hashKey("user_id"),
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(indexUsername, "username", ""),
		},
	})

	createTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.Sessions),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			attr("session_id", types.ScalarAttributeTypeS),
			attr("user_id", types.ScalarAttributeTypeS),
			attr("refresh_token", types.ScalarAttributeTypeS),
		},
		KeySchema: hashKey("session_id"),
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(indexUserID, "user_id", ""),
			gsi(indexRefreshToken, "refresh_token", ""),
		},
	})

	createTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.Categories),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			attr("category_id", types.ScalarAttributeTypeS),
			attr("name", types.ScalarAttributeTypeS),
		},
		KeySchema: hashKey("category_id"),
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(indexName, "name", ""),
		},
	})

	// Lost and found postings share one shape and one index layout.
	for _, table := range []string{tables.LostItems, tables.FoundItems} {
		createTable(ctx, client, &dynamodb.CreateTableInput{
			TableName:   aws.String(table),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				attr("item_id", types.ScalarAttributeTypeS),
				attr("status", types.ScalarAttributeTypeN),
				attr("publisher_user_id", types.ScalarAttributeTypeS),
				attr("created_at", types.ScalarAttributeTypeS),
			},
			KeySchema: hashKey("item_id"),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(indexStatusCreated, "status", "created_at"),
				gsi(indexPublisherCreated, "publisher_user_id", "created_at"),
			},
		})
	}

	createTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.Claims),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			attr("claim_id", types.ScalarAttributeTypeS),
			attr("item_id", types.ScalarAttributeTypeS),
			attr("applicant_user_id", types.ScalarAttributeTypeS),
			attr("publisher_user_id", types.ScalarAttributeTypeS),
			attr("status", types.ScalarAttributeTypeN),
			attr("created_at", types.ScalarAttributeTypeS),
		},
		KeySchema: hashKey("claim_id"),
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(indexItemCreated, "item_id", "created_at"),
			gsi(indexApplicantCreated, "applicant_user_id", "created_at"),
			gsi(indexPublisherCreated, "publisher_user_id", "created_at"),
			gsi(indexStatusCreated, "status", "created_at"),
		},
	})

	createTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.Notifications),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			attr("notification_id", types.ScalarAttributeTypeS),
			attr("user_id", types.ScalarAttributeTypeS),
			attr("created_at", types.ScalarAttributeTypeS),
		},
		KeySchema: hashKey("notification_id"),
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(indexUserCreated, "user_id", "created_at"),
		},
	})
}

func attr(name string, t types.ScalarAttributeType) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: t}
}

func hashKey(name string) []types.KeySchemaElement {
	return []types.KeySchemaElement{{AttributeName: aws.String(name), KeyType: types.KeyTypeHash}}
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKey, sortKey string) types.GlobalSecondaryIndex {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange,
		})
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(indexName),
		KeySchema:  ks,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client *dynamodb.Client, input *dynamodb.CreateTableInput) {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			slog.Warn("could not create table", "table", *input.TableName, "err", err)
		}
	} else {
		slog.Info("created table", "table", *input.TableName)
	}
}
