package dynamock

import (
	"regexp"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShadowTableInput(t *testing.T) {
	input := ShadowTableInput("users", "")

	assert.Equal(t, "users", aws.ToString(input.TableName))
	assert.Equal(t, types.BillingModePayPerRequest, input.BillingMode)
	assert.Equal(t, []types.KeySchemaElement{
		{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
		{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
	}, input.KeySchema)
	assert.Len(t, input.AttributeDefinitions, 3)

	require.Len(t, input.GlobalSecondaryIndexes, 1)
	gsi := input.GlobalSecondaryIndexes[0]
	assert.Equal(t, DefaultIndexName, aws.ToString(gsi.IndexName))
	assert.Equal(t, []types.KeySchemaElement{
		{AttributeName: aws.String("sk"), KeyType: types.KeyTypeHash},
		{AttributeName: aws.String("gk"), KeyType: types.KeyTypeRange},
	}, gsi.KeySchema)
	assert.Equal(t, types.ProjectionTypeAll, gsi.Projection.ProjectionType)

	t.Run("custom index", func(t *testing.T) {
		input := ShadowTableInput("users", "by-scope")
		assert.Equal(t, "by-scope", aws.ToString(input.GlobalSecondaryIndexes[0].IndexName))
	})
}

func TestNewTestTable(t *testing.T) {
	name := NewTestTable("my table/test")
	assert.True(t, strings.HasPrefix(name, "my-table-test-"), name)
	assert.Regexp(t, regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`), name)
}

func TestNewLocalDynamoDB(t *testing.T) {
	local := NewLocalDynamoDB(8123)
	assert.Equal(t, 8123, local.Port)
	assert.Equal(t, "http://localhost:8123", local.Endpoint)
	assert.NotNil(t, local.Client)

	assert.Equal(t, DefaultLocalPort, NewDefaultLocalDynamoDB().Port)
}

func TestDefaultIntegrationTestConfig(t *testing.T) {
	config := DefaultIntegrationTestConfig()
	assert.Equal(t, DefaultLocalPort, config.Port)
	assert.Equal(t, DefaultIndexName, config.IndexName)
	assert.True(t, config.SkipIfNotRunning)
}
