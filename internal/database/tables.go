package database

import (
	"context"
	"fmt"
	"time"

	"studio-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func (c *DynamoDBClient) ListTables(ctx context.Context) ([]string, error) {
	var last *string
	var names []string

	for {
		out, err := c.svc.ListTables(ctx, &dynamodb.ListTablesInput{
			ExclusiveStartTableName: last,
			Limit:                   aws.Int32(100),
		})
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}

		names = append(names, out.TableNames...)
		if out.LastEvaluatedTableName == nil {
			break
		}
		last = out.LastEvaluatedTableName
	}

	return names, nil
}

// EnsureTables creates every table in specs that does not exist yet and
// waits for it to become active. It returns the names it created.
func (c *DynamoDBClient) EnsureTables(ctx context.Context, specs []model.TableSpec) ([]string, error) {
	existing, err := c.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	var created []string
	for _, spec := range specs {
		if present[spec.Name] {
			continue
		}
		if _, err := c.svc.CreateTable(ctx, createTableInput(spec)); err != nil {
			return created, fmt.Errorf("create table %s: %w", spec.Name, err)
		}

		waiter := dynamodb.NewTableExistsWaiter(c.svc)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(spec.Name)}, 2*time.Minute); err != nil {
			return created, fmt.Errorf("wait for table %s: %w", spec.Name, err)
		}
		created = append(created, spec.Name)
	}

	return created, nil
}

func createTableInput(spec model.TableSpec) *dynamodb.CreateTableInput {
	attrs := map[string]bool{spec.HashKey: true}
	input := &dynamodb.CreateTableInput{
		TableName:   aws.String(spec.Name),
		BillingMode: types.BillingModePayPerRequest,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(spec.HashKey), KeyType: types.KeyTypeHash},
		},
	}

	for _, idx := range spec.Indexes {
		schema := []types.KeySchemaElement{
			{AttributeName: aws.String(idx.HashKey), KeyType: types.KeyTypeHash},
		}
		attrs[idx.HashKey] = true
		if idx.RangeKey != "" {
			schema = append(schema, types.KeySchemaElement{AttributeName: aws.String(idx.RangeKey), KeyType: types.KeyTypeRange})
			attrs[idx.RangeKey] = true
		}
		input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName:  aws.String(idx.Name),
			KeySchema:  schema,
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}

	for name := range attrs {
		input.AttributeDefinitions = append(input.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeTypeS,
		})
	}

	return input
}
