package subject_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/subject"
	"github.com/trezcool/followup/storage/database/inmem"
	testutil "github.com/trezcool/followup/tests"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.NewDB()
	mod := testutil.CreateModule(t, inmemdb.NewModuleRepository(db), "FY2 - Batch 2026-29_Sem-1")
	svc := subject.NewService(inmemdb.NewSubjectRepository(db))

	phy, err := svc.Create(ctx, mod.ID, subject.NewSubject{Name: "Physics", ShortName: "PHY", ResultFormat: subject.FormatFull})
	require.NoError(t, err)
	assert.True(t, phy.IsActive)

	maths, err := svc.Create(ctx, mod.ID, subject.NewSubject{Name: "Mathematics-1", ShortName: "MATHS1", ResultFormat: subject.FormatFull})
	require.NoError(t, err)

	t.Run("duplicate name", func(t *testing.T) {
		_, err := svc.Create(ctx, mod.ID, subject.NewSubject{Name: "physics", ResultFormat: subject.FormatFull})
		require.Error(t, err)
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok)
		assert.Equal(t, []core.FieldError{{Field: "name", Error: subject.ErrNameExists.Error()}}, verr.Fields)
	})

	t.Run("ordered skips inactive subjects", func(t *testing.T) {
		inactive := false
		_, err := svc.Update(ctx, mod.ID, phy.ID, subject.UpdateSubject{
			NewSubject: subject.NewSubject{Name: "Physics", ShortName: "PHY", ResultFormat: subject.FormatT4Only},
			IsActive:   &inactive,
		})
		require.NoError(t, err)

		ordered, err := svc.Ordered(ctx, mod.ID)
		require.NoError(t, err)
		require.Len(t, ordered, 1)
		assert.Equal(t, maths.ID, ordered[0].ID)

		all, err := svc.List(ctx, mod.ID, false)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		got, err := svc.Get(ctx, mod.ID, phy.ID)
		require.NoError(t, err)
		assert.True(t, got.T4Only())
		assert.False(t, got.IsActive)
	})

	t.Run("rename keeps own name", func(t *testing.T) {
		_, err := svc.Update(ctx, mod.ID, maths.ID, subject.UpdateSubject{
			NewSubject: subject.NewSubject{Name: "Mathematics-1", ShortName: "M1", ResultFormat: subject.FormatFull},
		})
		assert.NoError(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, mod.ID, phy.ID))
		_, err := svc.Get(ctx, mod.ID, phy.ID)
		assert.Equal(t, subject.ErrNotFound, errors.Cause(err))
	})
}
