package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSQLAdapter_Close(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		expectErr bool
	}{
		{
			name:      "close with nil DB",
			setupDB:   false,
			expectErr: false,
		},
		{
			name:      "close with open DB",
			setupDB:   true,
			expectErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := NewBase(nil)

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.Pool = db
			}

			err := base.Close()
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.False(t, base.IsConnected())
		})
	}
}

func TestBaseSQLAdapter_Open(t *testing.T) {
	_, mock, err := sqlmock.NewWithDSN("base_open_dsn", sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()

	base := NewBase(nil)
	require.NoError(t, base.Open(context.Background(), "sqlmock", "base_open_dsn", Config{Type: "mock"}))
	assert.True(t, base.IsConnected())
	assert.NotNil(t, base.DB())
	assert.Equal(t, "mock", base.Cfg.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_OpenPingFails(t *testing.T) {
	_, mock, err := sqlmock.NewWithDSN("base_ping_fail_dsn", sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(assert.AnError)

	base := NewBase(nil)
	err = base.Open(context.Background(), "sqlmock", "base_ping_fail_dsn", Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping sqlmock")
	assert.False(t, base.IsConnected())
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", QuestionPlaceholder(3))
	assert.Equal(t, "$1", DollarPlaceholder(1))
	assert.Equal(t, "$12", DollarPlaceholder(12))
}
