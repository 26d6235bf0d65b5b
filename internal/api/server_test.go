package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-chronos/internal/auth"
	"github.com/ryanbastic/go-chronos/internal/model"
	"github.com/ryanbastic/go-chronos/internal/storage"
)

// --- Mock Store ---

type mockStore struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*model.User
	matrices   map[uuid.UUID]*model.Matrix
	categories map[uuid.UUID][]model.Category
	cells      map[uuid.UUID]map[int]string
	clock      time.Time
	applyErr   error
}

func newMockStore() *mockStore {
	return &mockStore{
		users:      make(map[uuid.UUID]*model.User),
		matrices:   make(map[uuid.UUID]*model.Matrix),
		categories: make(map[uuid.UUID][]model.Category),
		cells:      make(map[uuid.UUID]map[int]string),
		clock:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *mockStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *mockStore) Ping(context.Context) error { return nil }

func (m *mockStore) UpsertUser(_ context.Context, identity model.Identity) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Subject == identity.Subject {
			cp := *u
			return &cp, nil
		}
	}
	now := m.tick()
	u := &model.User{
		ID:        uuid.New(),
		Subject:   identity.Subject,
		Email:     identity.Email,
		Name:      identity.Name,
		AvatarURL: identity.AvatarURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *mockStore) GetUser(_ context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockStore) UpdateProfile(_ context.Context, id uuid.UUID, update model.ProfileUpdate) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.AvatarURL != nil {
		u.AvatarURL = *update.AvatarURL
	}
	u.UpdatedAt = m.tick()
	cp := *u
	return &cp, nil
}

func (m *mockStore) CreateMatrix(_ context.Context, ownerID uuid.UUID, req model.NewMatrix) (*model.Matrix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	cfg := req.Config()
	cfg.MatrixID = id
	mx := &model.Matrix{ID: id, OwnerID: ownerID, Name: req.Name, Config: cfg, CreatedAt: m.tick()}
	m.matrices[id] = mx
	cp := *mx
	return &cp, nil
}

func (m *mockStore) GetMatrix(_ context.Context, ownerID, id uuid.UUID) (*model.Matrix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mx, ok := m.matrices[id]
	if !ok || mx.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	cp := *mx
	return &cp, nil
}

// ListMatrices pages by the ID of the last matrix returned.
func (m *mockStore) ListMatrices(_ context.Context, ownerID uuid.UUID, cursor string, limit int) (*storage.MatrixPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var after *model.Matrix
	if cursor != "" {
		id, err := uuid.Parse(cursor)
		if err != nil {
			return nil, storage.ErrInvalidCursor
		}
		after = m.matrices[id]
	}

	var owned []model.Matrix
	for _, mx := range m.matrices {
		if mx.OwnerID == ownerID && (after == nil || mx.CreatedAt.Before(after.CreatedAt)) {
			owned = append(owned, *mx)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })

	page := &storage.MatrixPage{Matrices: []model.Matrix{}}
	if len(owned) > limit {
		owned = owned[:limit]
		page.HasMore = true
		page.NextCursor = owned[limit-1].ID.String()
	}
	page.Matrices = append(page.Matrices, owned...)
	return page, nil
}

func (m *mockStore) DeleteMatrix(_ context.Context, ownerID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mx, ok := m.matrices[id]
	if !ok || mx.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(m.matrices, id)
	delete(m.categories, id)
	delete(m.cells, id)
	return nil
}

func (m *mockStore) ListCategories(_ context.Context, matrixID uuid.UUID) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Category{}, m.categories[matrixID]...), nil
}

func (m *mockStore) CreateCategory(_ context.Context, matrixID uuid.UUID, name, color string) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories[matrixID] {
		if c.Color == color {
			return nil, storage.ErrConflict
		}
	}
	c := model.Category{ID: uuid.New(), MatrixID: matrixID, Name: name, Color: color, CreatedAt: m.tick()}
	m.categories[matrixID] = append(m.categories[matrixID], c)
	return &c, nil
}

func (m *mockStore) UpdateCategory(_ context.Context, matrixID, id uuid.UUID, name, color string) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cats := m.categories[matrixID]
	for _, c := range cats {
		if c.ID != id && c.Color == color {
			return nil, storage.ErrConflict
		}
	}
	for i := range cats {
		if cats[i].ID == id {
			cats[i].Name, cats[i].Color = name, color
			c := cats[i]
			return &c, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockStore) DeleteCategory(_ context.Context, matrixID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cats := m.categories[matrixID]
	for i := range cats {
		if cats[i].ID == id {
			m.categories[matrixID] = append(cats[:i], cats[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *mockStore) ListCells(_ context.Context, matrixID uuid.UUID) ([]model.Cell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cellList(matrixID), nil
}

func (m *mockStore) ApplyCells(_ context.Context, matrixID uuid.UUID, cells []model.Cell) ([]model.Cell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	stored := m.cells[matrixID]
	if stored == nil {
		stored = make(map[int]string)
		m.cells[matrixID] = stored
	}
	for _, c := range cells {
		if color := c.Color(); color == model.Unfilled {
			delete(stored, c.Index)
		} else {
			stored[c.Index] = color
		}
	}
	return m.cellList(matrixID), nil
}

func (m *mockStore) cellList(matrixID uuid.UUID) []model.Cell {
	cells := []model.Cell{}
	for idx, color := range m.cells[matrixID] {
		cells = append(cells, model.NewCell(idx, color))
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Index < cells[j].Index })
	return cells
}

// --- Fake identity provider and avatar store ---

type fakeVerifier struct {
	identities map[string]model.Identity
}

func (f *fakeVerifier) Verify(_ context.Context, idToken string) (model.Identity, error) {
	id, ok := f.identities[idToken]
	if !ok {
		return model.Identity{}, auth.ErrInvalidToken
	}
	return id, nil
}

type fakeAvatars struct {
	uploads int
}

func (f *fakeAvatars) UploadAvatar(_ context.Context, userID uuid.UUID, image []byte) (string, error) {
	f.uploads++
	return "https://img.example.com/avatars/" + userID.String(), nil
}

// --- Test server ---

type testServer struct {
	handler     http.Handler
	store       *mockStore
	revocations *auth.MemoryRevocations
	avatars     *fakeAvatars
}

var (
	alice = model.Identity{Subject: "google-alice", Email: "alice@example.com", Name: "Alice"}
	bob   = model.Identity{Subject: "google-bob", Email: "bob@example.com", Name: "Bob"}
)

func newTestServer(t *testing.T, backends []Backend) *testServer {
	t.Helper()
	ts := &testServer{
		store:       newMockStore(),
		revocations: auth.NewMemoryRevocations(),
		avatars:     &fakeAvatars{},
	}
	ts.handler = NewServer(Deps{
		Logger:   testLogger(),
		Store:    ts.store,
		Sessions: auth.NewIssuer("test-secret", time.Hour),
		Identity: &fakeVerifier{identities: map[string]model.Identity{
			"alice-token": alice,
			"bob-token":   bob,
		}},
		Revocations: ts.revocations,
		Avatars:     ts.avatars,
		Backends:    backends,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

// login signs in with the fake provider and returns the session token.
func (ts *testServer) login(t *testing.T, idToken string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/auth/google", "", map[string]string{"idToken": idToken})
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", w.Code, w.Body.String())
	}
	var resp SessionBody
	decode(t, w, &resp)
	return resp.Data.Token
}

func (ts *testServer) createMatrix(t *testing.T, token string, body CreateMatrixBody) *model.Matrix {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/matrix", token, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create matrix: status %d body %s", w.Code, w.Body.String())
	}
	var resp MatrixBody
	decode(t, w, &resp)
	return resp.Data
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v (body %q)", err, w.Body.String())
	}
}

func scenarioMatrix() CreateMatrixBody {
	return CreateMatrixBody{
		Name:      "Week 1",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-02",
		StartTime: "09:00",
		EndTime:   "11:00",
		Interval:  60,
	}
}

func TestNewServer_MetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodGet, "/api/livez", "", nil)

	w := ts.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("chronos_http_requests_total")) {
		t.Error("metrics output missing chronos_http_requests_total")
	}
}

func TestNewServer_OpenAPI(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.do(t, http.MethodGet, "/openapi.json", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"save-cells"`)) {
		t.Error("OpenAPI document missing save-cells operation")
	}
}
