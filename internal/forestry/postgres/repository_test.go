//go:build integration

package postgres

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/forestry"
	"github.com/lestari-foundation/forestgate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDB *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pg, err := testutil.NewPostgresContainer(ctx)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	if err := pg.Migrate("file://../../../migrations"); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	testDB, err = pgxpool.New(ctx, pg.ConnectionString)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}

	code := m.Run()

	testDB.Close()
	if err := pg.Terminate(ctx); err != nil {
		log.Printf("terminate postgres: %v", err)
	}
	os.Exit(code)
}

func seedUser(t *testing.T) string {
	t.Helper()
	var id string
	err := testDB.QueryRow(context.Background(),
		`INSERT INTO users (email, password_hash, role) VALUES (gen_random_uuid()::text || '@test', 'x', 'program_implementer') RETURNING id`,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func licence(number, group, createdBy string, area float64) *domain.SocialForestry {
	return &domain.SocialForestry{
		LicenseNumber: number,
		GroupName:     group,
		Scheme:        domain.SchemeHutanKemasyarakatan,
		Province:      "Jambi",
		AreaHa:        area,
		CreatedBy:     createdBy,
	}
}

func TestRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(testDB)
	first := seedUser(t)
	second := seedUser(t)

	inserted, err := repo.Upsert(ctx, []*domain.SocialForestry{
		licence("SK.UPSERT.1", "KTH Maju", first, 100),
		licence("SK.UPSERT.2", "KTH Lestari", first, 50),
	})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, inserted)

	again := licence("SK.UPSERT.1", "KTH Maju Bersama", second, 110)
	inserted, err = repo.Upsert(ctx, []*domain.SocialForestry{again})
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, inserted)
	assert.Equal(t, first, again.CreatedBy)

	got, err := repo.GetByID(ctx, again.ID)
	require.NoError(t, err)
	assert.Equal(t, "KTH Maju Bersama", got.GroupName)
	assert.InDelta(t, 110, got.AreaHa, 0.001)
}

func TestRepository_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(testDB)
	user := seedUser(t)

	require.NoError(t, repo.Create(ctx, licence("SK.DUP.1", "KTH Satu", user, 10)))
	err := repo.Create(ctx, licence("SK.DUP.1", "KTH Dua", user, 20))

	assert.ErrorIs(t, err, forestry.ErrDuplicateLicense)
}

func TestRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(testDB)
	user := seedUser(t)

	require.NoError(t, repo.Create(ctx, licence("SK.LIST.1", "Gapoktan Harapan", user, 10)))

	items, total, err := repo.List(ctx, forestry.ListFilter{Search: "harapan", Limit: 10})

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "SK.LIST.1", items[0].LicenseNumber)
}
