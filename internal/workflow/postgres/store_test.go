//go:build integration

package postgres

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/testutil"
	"github.com/lestari-foundation/forestgate/internal/workflow"
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

func seedProgram(t *testing.T, status domain.WorkflowStatus) (programID, userID string) {
	t.Helper()
	ctx := context.Background()

	err := testDB.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, role) VALUES (gen_random_uuid()::text || '@test', 'x', 'monev') RETURNING id`,
	).Scan(&userID)
	require.NoError(t, err)

	err = testDB.QueryRow(ctx, `
		INSERT INTO programs (nama_program, kategori_program, jenis_program, status, created_by)
		VALUES ('Rehabilitasi Mangrove', 'Konservasi', 'KONSERVASI', $1, $2)
		RETURNING id`, string(status), userID,
	).Scan(&programID)
	require.NoError(t, err)
	return programID, userID
}

func TestStore_Snapshot(t *testing.T) {
	store := NewStore(testDB)
	id, _ := seedProgram(t, domain.StatusDraft)

	snap, err := store.Snapshot(context.Background(), domain.KindProgram, id)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, snap.Status)
	assert.Equal(t, "Rehabilitasi Mangrove", snap.Title)
	assert.Equal(t, "Konservasi", snap.Fields[workflow.FieldProgramCategory])
	assert.Equal(t, "", snap.Fields[workflow.FieldCarbonProjectID])
}

func TestStore_Snapshot_NotFound(t *testing.T) {
	store := NewStore(testDB)

	_, err := store.Snapshot(context.Background(), domain.KindCarbonProject, "00000000-0000-0000-0000-000000000000")

	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestStore_CompareAndSet(t *testing.T) {
	store := NewStore(testDB)
	id, userID := seedProgram(t, domain.StatusUnderReview)
	now := time.Now().UTC()
	notes := "disetujui"

	snap, previous, err := store.CompareAndSet(context.Background(), domain.KindProgram, id,
		[]domain.WorkflowStatus{domain.StatusSubmittedForReview, domain.StatusUnderReview},
		workflow.Change{
			To:          domain.StatusApproved,
			ReviewedBy:  &userID,
			ReviewedAt:  &now,
			ReviewNotes: &notes,
			SetNotes:    true,
		})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnderReview, previous)
	assert.Equal(t, domain.StatusApproved, snap.Status)
	require.NotNil(t, snap.ReviewedBy)
	assert.Equal(t, userID, *snap.ReviewedBy)
	require.NotNil(t, snap.ReviewNotes)
	assert.Equal(t, notes, *snap.ReviewNotes)
	assert.Nil(t, snap.SubmittedBy)
}

func TestStore_CompareAndSet_Conflict(t *testing.T) {
	store := NewStore(testDB)
	id, _ := seedProgram(t, domain.StatusApproved)

	_, _, err := store.CompareAndSet(context.Background(), domain.KindProgram, id,
		[]domain.WorkflowStatus{domain.StatusDraft, domain.StatusNeedsRevision},
		workflow.Change{To: domain.StatusSubmittedForReview})

	var conflict *workflow.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, domain.StatusApproved, conflict.Current)
	assert.False(t, conflict.Modified)
}

func TestStore_CompareAndSet_RowEditedAfterSnapshot(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := NewStore(testDB)
	id, userID := seedProgram(t, domain.StatusDraft)

	snap, err := store.Snapshot(ctx, domain.KindProgram, id)
	require.NoError(t, err)

	// a draft edit lands after the completeness check read the row
	_, err = testDB.Exec(ctx,
		`UPDATE programs SET kategori_program = '', updated_at = NOW() + interval '1 second' WHERE id = $1`, id)
	require.NoError(t, err)

	// Act
	now := time.Now().UTC()
	_, _, err = store.CompareAndSet(ctx, domain.KindProgram, id,
		[]domain.WorkflowStatus{domain.StatusDraft, domain.StatusNeedsRevision},
		workflow.Change{
			To:              domain.StatusSubmittedForReview,
			SubmittedBy:     &userID,
			SubmittedAt:     &now,
			ExpectUpdatedAt: &snap.UpdatedAt,
		})

	// Assert
	var conflict *workflow.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.True(t, conflict.Modified)
	assert.Equal(t, domain.StatusDraft, conflict.Current)

	after, err := store.Snapshot(ctx, domain.KindProgram, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, after.Status)
	assert.Nil(t, after.SubmittedBy)
}

func TestStore_CompareAndSet_UnmodifiedSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewStore(testDB)
	id, userID := seedProgram(t, domain.StatusDraft)

	snap, err := store.Snapshot(ctx, domain.KindProgram, id)
	require.NoError(t, err)

	now := time.Now().UTC()
	updated, previous, err := store.CompareAndSet(ctx, domain.KindProgram, id,
		[]domain.WorkflowStatus{domain.StatusDraft, domain.StatusNeedsRevision},
		workflow.Change{
			To:              domain.StatusSubmittedForReview,
			SubmittedBy:     &userID,
			SubmittedAt:     &now,
			ExpectUpdatedAt: &snap.UpdatedAt,
		})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, previous)
	assert.Equal(t, domain.StatusSubmittedForReview, updated.Status)
	assert.False(t, updated.UpdatedAt.Equal(snap.UpdatedAt))
}

func TestStore_CompareAndSet_SingleWinner(t *testing.T) {
	store := NewStore(testDB)
	id, userID := seedProgram(t, domain.StatusSubmittedForReview)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			now := time.Now().UTC()
			_, _, err := store.CompareAndSet(context.Background(), domain.KindProgram, id,
				[]domain.WorkflowStatus{domain.StatusSubmittedForReview},
				workflow.Change{To: domain.StatusUnderReview, ReviewedBy: &userID, ReviewedAt: &now})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, workflow.ErrStatusConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, conflicts)
}
