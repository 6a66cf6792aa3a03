package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

func TestRecordIDString(t *testing.T) {
	id := surrealmodels.RecordID{Table: "task", ID: "01JF3V9GJ0"}
	s, err := RecordIDString(id)
	require.NoError(t, err)
	assert.Equal(t, "01JF3V9GJ0", s)
}

func TestRecordIDStringNonString(t *testing.T) {
	id := surrealmodels.RecordID{Table: "task", ID: 42}
	_, err := RecordIDString(id)
	assert.Error(t, err)

	assert.Panics(t, func() {
		MustRecordIDString(id)
	})
}
