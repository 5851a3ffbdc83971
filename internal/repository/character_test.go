//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeonisk/arbiter/internal/domain"
	"github.com/aeonisk/arbiter/internal/pagination"
	"github.com/aeonisk/arbiter/internal/testutil"
)

func newCharacter(name string) *domain.Character {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Character{
		ID:       uuid.NewString(),
		Name:     name,
		Concept:  "Void-touched ritualist",
		TrueWill: "Mend the breach",
		Attributes: map[string]int{
			domain.AttrStrength: 5,
			domain.AttrWill:     4,
		},
		Skills: map[string]int{
			"brawl":  4,
			"ritual": 3,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCharacterRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewCharacterRepository(pool)
	c := newCharacter("Kestrel")
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kestrel", got.Name)
	assert.Equal(t, 5, got.Attributes[domain.AttrStrength])
	assert.Equal(t, 4, got.Skills["brawl"])
	assert.Equal(t, "Mend the breach", got.TrueWill)
}

func TestCharacterRepository_GetByNameCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewCharacterRepository(pool)
	require.NoError(t, repo.Create(ctx, newCharacter("Kestrel")))

	got, err := repo.GetByName(ctx, "kestrel")
	require.NoError(t, err)
	assert.Equal(t, "Kestrel", got.Name)

	_, err = repo.GetByName(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrCharacterNotFound)
}

func TestCharacterRepository_DuplicateName(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewCharacterRepository(pool)
	require.NoError(t, repo.Create(ctx, newCharacter("Kestrel")))

	err := repo.Create(ctx, newCharacter("KESTREL"))
	assert.ErrorIs(t, err, domain.ErrCharacterAlreadyExists)
}

func TestCharacterRepository_Update(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewCharacterRepository(pool)
	c := newCharacter("Kestrel")
	require.NoError(t, repo.Create(ctx, c))

	c.VoidScore = 2
	c.Skills["stealth"] = 3
	require.NoError(t, repo.Update(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.VoidScore)
	assert.Equal(t, 3, got.Skills["stealth"])

	missing := newCharacter("Ghost")
	assert.ErrorIs(t, repo.Update(ctx, missing), domain.ErrCharacterNotFound)
}

func TestCharacterRepository_ListWithCursor(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewCharacterRepository(pool)
	names := []string{"Alder", "Briar", "Cinder", "Dusk", "Ember"}
	for i, name := range names {
		c := newCharacter(name)
		c.CreatedAt = c.CreatedAt.Add(time.Duration(i) * time.Second)
		c.UpdatedAt = c.CreatedAt
		require.NoError(t, repo.Create(ctx, c))
	}

	page, err := repo.ListWithCursor(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.Cursor)
	assert.Equal(t, "Ember", page.Items[0].Name)

	seen := []string{page.Items[0].Name, page.Items[1].Name}
	cursor := page.Cursor
	for cursor != "" {
		decoded, err := pagination.DecodeCursor(cursor)
		require.NoError(t, err)
		page, err = repo.ListWithCursor(ctx, decoded, 2)
		require.NoError(t, err)
		for _, item := range page.Items {
			seen = append(seen, item.Name)
		}
		cursor = page.Cursor
	}
	assert.Len(t, seen, len(names))
}

func TestCharacterRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewCharacterRepository(pool)
	c := newCharacter("Kestrel")
	require.NoError(t, repo.Create(ctx, c))

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err := repo.GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrCharacterNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, c.ID), domain.ErrCharacterNotFound)
}
