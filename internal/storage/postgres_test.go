package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ryanbastic/go-chronos/internal/model"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testStore *PostgresStore

func TestMain(m *testing.M) {
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16",
		postgres.WithDatabase("chronos"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		panic(fmt.Sprintf("start postgres container: %v", err))
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(fmt.Sprintf("get connection string: %v", err))
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		panic(fmt.Sprintf("create pool: %v", err))
	}
	if err := RunMigrations(ctx, pool); err != nil {
		panic(fmt.Sprintf("run migrations: %v", err))
	}
	testStore = NewPostgresStore(pool, 5*time.Second)

	code := m.Run()

	pool.Close()
	_ = testcontainers.TerminateContainer(ctr)

	os.Exit(code)
}

func freshUser(t *testing.T) *model.User {
	t.Helper()
	u, err := testStore.UpsertUser(context.Background(), model.Identity{
		Subject: "google-" + uuid.NewString(),
		Email:   "ada@example.com",
		Name:    "Ada",
	})
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	return u
}

func freshMatrix(t *testing.T, ownerID uuid.UUID) *model.Matrix {
	t.Helper()
	m, err := testStore.CreateMatrix(context.Background(), ownerID, model.NewMatrix{
		Name:      "Week",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-07",
		StartTime: "09:00",
		EndTime:   "17:00",
		Interval:  30,
	})
	if err != nil {
		t.Fatalf("CreateMatrix: %v", err)
	}
	return m
}

func TestRunMigrations_Idempotent(t *testing.T) {
	if err := RunMigrations(context.Background(), testStore.pool); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
}

func TestUpsertUser_KeepsEditedProfile(t *testing.T) {
	ctx := context.Background()
	u := freshUser(t)

	name := "Ada Lovelace"
	if _, err := testStore.UpdateProfile(ctx, u.ID, model.ProfileUpdate{Name: &name}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	again, err := testStore.UpsertUser(ctx, model.Identity{Subject: u.Subject, Email: "ada@new.example.com", Name: "Ada"})
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if again.ID != u.ID {
		t.Errorf("ID = %v, want %v", again.ID, u.ID)
	}
	if again.Name != name {
		t.Errorf("Name = %q, want %q", again.Name, name)
	}
	if again.Email != "ada@new.example.com" {
		t.Errorf("Email = %q, want updated email", again.Email)
	}
}

func TestUpdateProfile_Partial(t *testing.T) {
	ctx := context.Background()
	u := freshUser(t)

	avatar := "https://cdn.example.com/a.png"
	got, err := testStore.UpdateProfile(ctx, u.ID, model.ProfileUpdate{AvatarURL: &avatar})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.AvatarURL != avatar || got.Name != "Ada" {
		t.Errorf("got %+v, want avatar set and name unchanged", got)
	}

	if _, err := testStore.UpdateProfile(ctx, uuid.New(), model.ProfileUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user: got %v, want ErrNotFound", err)
	}
}

func TestCreateMatrix_RoundTrip(t *testing.T) {
	ctx := context.Background()
	u := freshUser(t)
	m := freshMatrix(t, u.ID)

	got, err := testStore.GetMatrix(ctx, u.ID, m.ID)
	if err != nil {
		t.Fatalf("GetMatrix: %v", err)
	}
	want := model.MatrixConfig{
		MatrixID:  m.ID,
		StartDate: "2024-01-01",
		EndDate:   "2024-01-07",
		StartTime: "09:00",
		EndTime:   "17:00",
		Interval:  30,
	}
	if got.Config != want {
		t.Errorf("Config = %+v, want %+v", got.Config, want)
	}
	if got.OwnerID != u.ID {
		t.Errorf("OwnerID = %v, want %v", got.OwnerID, u.ID)
	}
}

func TestGetMatrix_OtherOwner(t *testing.T) {
	ctx := context.Background()
	owner := freshUser(t)
	other := freshUser(t)
	m := freshMatrix(t, owner.ID)

	if _, err := testStore.GetMatrix(ctx, other.ID, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMatrix: got %v, want ErrNotFound", err)
	}
	if err := testStore.DeleteMatrix(ctx, other.ID, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteMatrix: got %v, want ErrNotFound", err)
	}
}

func TestListMatrices_Pagination(t *testing.T) {
	ctx := context.Background()
	u := freshUser(t)

	var created []uuid.UUID
	for range 5 {
		created = append(created, freshMatrix(t, u.ID).ID)
	}

	var (
		seen   []uuid.UUID
		cursor string
	)
	for pages := 0; ; pages++ {
		if pages > 5 {
			t.Fatal("pagination did not terminate")
		}
		page, err := testStore.ListMatrices(ctx, u.ID, cursor, 2)
		if err != nil {
			t.Fatalf("ListMatrices: %v", err)
		}
		for _, m := range page.Matrices {
			seen = append(seen, m.ID)
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	if len(seen) != len(created) {
		t.Fatalf("got %d matrices, want %d", len(seen), len(created))
	}
	// Newest first.
	for i, id := range seen {
		if want := created[len(created)-1-i]; id != want {
			t.Errorf("position %d: got %v, want %v", i, id, want)
		}
	}
}

func TestListMatrices_InvalidCursor(t *testing.T) {
	if _, err := testStore.ListMatrices(context.Background(), uuid.New(), "not-base64!!", 10); err == nil {
		t.Error("expected error for invalid cursor")
	}
}

func TestCategories_UniqueColor(t *testing.T) {
	ctx := context.Background()
	u := freshUser(t)
	m := freshMatrix(t, u.ID)

	work, err := testStore.CreateCategory(ctx, m.ID, "Work", "#ff0000")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := testStore.CreateCategory(ctx, m.ID, "Other", "#ff0000"); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate color: got %v, want ErrConflict", err)
	}

	rest, err := testStore.CreateCategory(ctx, m.ID, "Rest", "#0000ff")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := testStore.UpdateCategory(ctx, m.ID, rest.ID, "Rest", "#ff0000"); !errors.Is(err, ErrConflict) {
		t.Errorf("update to taken color: got %v, want ErrConflict", err)
	}

	updated, err := testStore.UpdateCategory(ctx, m.ID, work.ID, "Deep work", "#aa0000")
	if err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	if updated.Name != "Deep work" || updated.Color != "#aa0000" {
		t.Errorf("updated = %+v", updated)
	}

	list, err := testStore.ListCategories(ctx, m.ID)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(list) != 2 || list[0].ID != work.ID {
		t.Errorf("ListCategories = %+v, want work then rest", list)
	}

	if err := testStore.DeleteCategory(ctx, m.ID, work.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if err := testStore.DeleteCategory(ctx, m.ID, work.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteCategory: got %v, want ErrNotFound", err)
	}
}

func TestCreateCategory_UnknownMatrix(t *testing.T) {
	_, err := testStore.CreateCategory(context.Background(), uuid.New(), "Work", "#ff0000")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestApplyCells(t *testing.T) {
	ctx := context.Background()
	u := freshUser(t)
	m := freshMatrix(t, u.ID)

	got, err := testStore.ApplyCells(ctx, m.ID, []model.Cell{
		model.NewCell(4, "#ff0000"),
		model.NewCell(0, "#00ff00"),
	})
	if err != nil {
		t.Fatalf("ApplyCells: %v", err)
	}
	if len(got) != 2 || got[0].Index != 0 || got[1].Index != 4 {
		t.Fatalf("after insert = %+v", got)
	}

	// Partial update: repaint 4, clear 0, add 7. Cells not sent are untouched.
	got, err = testStore.ApplyCells(ctx, m.ID, []model.Cell{
		{Index: 0},
		model.NewCell(4, "#0000ff"),
		model.NewCell(7, "#ff0000"),
	})
	if err != nil {
		t.Fatalf("ApplyCells: %v", err)
	}
	want := map[int]string{4: "#0000ff", 7: "#ff0000"}
	if len(got) != len(want) {
		t.Fatalf("after update = %+v, want %v", got, want)
	}
	for _, c := range got {
		if want[c.Index] != c.Color() {
			t.Errorf("cell %d = %q, want %q", c.Index, c.Color(), want[c.Index])
		}
	}

	listed, err := testStore.ListCells(ctx, m.ID)
	if err != nil {
		t.Fatalf("ListCells: %v", err)
	}
	if len(listed) != len(got) {
		t.Errorf("ListCells returned %d cells, ApplyCells %d", len(listed), len(got))
	}
}

func TestApplyCells_UnknownMatrix(t *testing.T) {
	_, err := testStore.ApplyCells(context.Background(), uuid.New(), []model.Cell{model.NewCell(0, "#ff0000")})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestDeleteMatrix_Cascades(t *testing.T) {
	ctx := context.Background()
	u := freshUser(t)
	m := freshMatrix(t, u.ID)

	if _, err := testStore.CreateCategory(ctx, m.ID, "Work", "#ff0000"); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := testStore.ApplyCells(ctx, m.ID, []model.Cell{model.NewCell(1, "#ff0000")}); err != nil {
		t.Fatalf("ApplyCells: %v", err)
	}
	if err := testStore.DeleteMatrix(ctx, u.ID, m.ID); err != nil {
		t.Fatalf("DeleteMatrix: %v", err)
	}

	cats, err := testStore.ListCategories(ctx, m.ID)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	cells, err := testStore.ListCells(ctx, m.ID)
	if err != nil {
		t.Fatalf("ListCells: %v", err)
	}
	if len(cats) != 0 || len(cells) != 0 {
		t.Errorf("after delete: %d categories, %d cells; want none", len(cats), len(cells))
	}
}

func TestPing(t *testing.T) {
	if err := testStore.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
