package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsesMigrationSchema(t *testing.T) {
	conn := New(t).DB()

	var applied int64
	require.NoError(t, conn.Raw(`SELECT COUNT(*) FROM goose_db_version WHERE version_id > 0`).Scan(&applied).Error)
	assert.EqualValues(t, 3, applied)

	insert := `INSERT INTO users (id, name, email, password_hash) VALUES (?, 'Alice', 'alice@example.com', 'x')`
	require.NoError(t, conn.Exec(insert, uuid.NewString()).Error)
	err := conn.Exec(insert, uuid.NewString()).Error
	require.Error(t, err)
	assert.Contains(t, err.Error(), "users.email")

	var active bool
	require.NoError(t, conn.Raw(`SELECT is_active FROM users WHERE email = 'alice@example.com'`).Scan(&active).Error)
	assert.True(t, active, "column defaults come from the migrations")
}

func TestNewEnforcesForeignKeys(t *testing.T) {
	conn := New(t).DB()

	err := conn.Exec(`INSERT INTO user_store_links (id, user_id, store_id) VALUES (?, ?, ?)`,
		uuid.NewString(), uuid.NewString(), uuid.NewString()).Error
	assert.Error(t, err)
}
