package grants

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioworks/folio/pkg/model"
)

// Query-shape tests: the effective-capability union must bind the profile
// id to both the direct-grant branch and the group-membership subquery.

func TestEffectiveCapabilitiesBindsProfileTwice(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"capability"}).
		AddRow("read").
		AddRow("update")

	mock.ExpectQuery(`SELECT DISTINCT g\.capability`).
		WithArgs(model.EntityCorpus, int64(7), int64(42), int64(42)).
		WillReturnRows(rows)

	caps, err := NewStore(db).EffectiveCapabilities(context.Background(), 42, model.EntityCorpus, 7)
	require.NoError(t, err)
	assert.Equal(t, []Capability{CapabilityRead, CapabilityUpdate}, caps)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasCapabilityQueryShape(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(model.EntityDocument, int64(3), CapabilityUpdate, int64(9), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := NewStore(db).HasCapability(context.Background(), 9, model.EntityDocument, 3, CapabilityUpdate)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeAllForObjectQueryShape(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM grants WHERE object_type = \$1 AND object_id = \$2`).
		WithArgs(model.EntityCorpus, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, NewStore(db).RevokeAllForObject(context.Background(), model.EntityCorpus, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}
