package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// The key index must track the write mode: upsert's conflict target needs
// it, while insert-only runs repeat (htsnumber, indent) keys and would
// abort on their first row if the index survived.
func TestWriteModeDDL_ManagesKeyIndex(t *testing.T) {
	assert.True(t, strings.HasPrefix(writeModeDDL(Upsert), "CREATE UNIQUE INDEX"))
	assert.Contains(t, writeModeDDL(Upsert), keyIndexName)

	assert.True(t, strings.HasPrefix(writeModeDDL(Append), "DROP INDEX"))
	assert.Contains(t, writeModeDDL(Append), keyIndexName)
}

func TestInsertSQL_AppendIsPlainInsert(t *testing.T) {
	assert.NotContains(t, insertSQL(Append), "ON CONFLICT")
}

func TestInsertSQL_UpsertTargetsKey(t *testing.T) {
	sql := insertSQL(Upsert)
	assert.Contains(t, sql, "ON CONFLICT (htsnumber, indent) DO UPDATE")
	assert.Contains(t, sql, "embeddings = EXCLUDED.embeddings")
	assert.Contains(t, sql, "model_version = EXCLUDED.model_version")
}
