package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMySQL connects to the database named by TEST_MYSQL_DSN, e.g.
// test_user:test_password@tcp(localhost:3306)/testforge_test?parseTime=true
func setupMySQL(t *testing.T) *MySQLBackend {
	t.Helper()

	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set, skipping MySQL integration test")
	}

	b, err := NewMySQLBackend(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	for _, entity := range []string{EntityTestSuite, EntityTestCase} {
		require.NoError(t, b.ensureTable(context.Background(), entity))
		_, err := b.db.Exec("DELETE FROM " + entity)
		require.NoError(t, err)
	}
	return b
}

func TestMySQLBackendLifecycle(t *testing.T) {
	b := setupMySQL(t)
	ctx := context.Background()

	created := createSuite(t, b, "Login Flow")
	id := created[FieldID].(string)
	createSuite(t, b, "Checkout")

	got, err := b.GetRecordByID(ctx, EntityTestSuite, id)
	require.NoError(t, err)
	require.NotNil(t, got.Data)
	assert.Equal(t, "Login Flow", got.Data[FieldName])

	updated, err := b.UpdateRecord(ctx, EntityTestSuite, RecordsParams{Records: []Record{{FieldID: id, "priority": "high"}}})
	require.NoError(t, err)
	require.True(t, updated.Results[0].Success)
	assert.Equal(t, "high", updated.Results[0].Data["priority"])

	deleted, err := b.DeleteRecord(ctx, EntityTestSuite, DeleteParams{RecordIDs: []string{id}})
	require.NoError(t, err)
	assert.True(t, deleted.Success)

	fetched, err := b.FetchRecords(ctx, EntityTestSuite, Query{
		Where:   []Condition{{FieldName: FieldIsDeleted, Operator: OperatorExactMatch, Values: []interface{}{false}}},
		OrderBy: []OrderBy{{Field: FieldCreatedOn, Direction: DirectionDesc}},
	})
	require.NoError(t, err)
	require.Len(t, fetched.Data, 1)
	assert.Equal(t, "Checkout", fetched.Data[0][FieldName])

	again, err := b.DeleteRecord(ctx, EntityTestSuite, DeleteParams{RecordIDs: []string{id}})
	require.NoError(t, err)
	assert.False(t, again.Success)
}

func TestWhereClause(t *testing.T) {
	tests := []struct {
		name     string
		where    []Condition
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:    "no conditions",
			wantSQL: "",
		},
		{
			name: "deleted flag and owner",
			where: []Condition{
				{FieldName: FieldIsDeleted, Operator: OperatorExactMatch, Values: []interface{}{false}},
				{FieldName: FieldOwner, Operator: OperatorExactMatch, Values: []interface{}{"user-1"}},
			},
			wantSQL:  ` WHERE is_deleted = ? AND JSON_UNQUOTE(JSON_EXTRACT(data, ?)) IN (?)`,
			wantArgs: []interface{}{false, `$."Owner"`, "user-1"},
		},
		{
			name:     "ids use the column",
			where:    []Condition{{FieldName: FieldID, Operator: OperatorExactMatch, Values: []interface{}{"a", "b"}}},
			wantSQL:  ` WHERE id IN (?, ?)`,
			wantArgs: []interface{}{"a", "b"},
		},
		{
			name: "left to the decoded rows",
			where: []Condition{
				{FieldName: "priority", Operator: "Contains", Values: []interface{}{"hi"}},
				{FieldName: "count", Operator: OperatorExactMatch, Values: []interface{}{3}},
				{FieldName: `bad"name`, Operator: OperatorExactMatch, Values: []interface{}{"x"}},
				{FieldName: FieldCreatedOn, Operator: OperatorExactMatch, Values: []interface{}{"2026-01-01"}},
			},
			wantSQL: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := whereClause(tt.where)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
