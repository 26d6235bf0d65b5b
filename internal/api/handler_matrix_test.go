package api

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ryanbastic/go-chronos/internal/model"
)

func TestCreateMatrix(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t, "alice-token")

	body := scenarioMatrix()
	body.Name = "  Week 1  "
	body.StartTime = "9:00"
	m := ts.createMatrix(t, token, body)

	want := model.MatrixConfig{
		MatrixID:  m.ID,
		StartDate: "2024-01-01",
		EndDate:   "2024-01-02",
		StartTime: "09:00",
		EndTime:   "11:00",
		Interval:  60,
	}
	if diff := cmp.Diff(want, m.Config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if m.Name != "Week 1" {
		t.Errorf("name: got %q", m.Name)
	}
}

func TestCreateMatrix_Validation(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t, "alice-token")

	tests := []struct {
		name   string
		mutate func(b *CreateMatrixBody)
	}{
		{"empty name", func(b *CreateMatrixBody) { b.Name = "" }},
		{"end before start", func(b *CreateMatrixBody) { b.EndDate = "2023-12-31" }},
		{"too many days", func(b *CreateMatrixBody) { b.EndDate = "2025-06-01" }},
		{"bad time", func(b *CreateMatrixBody) { b.StartTime = "25:00" }},
		{"end time before start time", func(b *CreateMatrixBody) { b.EndTime = "08:00" }},
		{"zero interval", func(b *CreateMatrixBody) { b.Interval = 0 }},
		{"interval wider than day", func(b *CreateMatrixBody) { b.Interval = 180 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := scenarioMatrix()
			tt.mutate(&body)
			w := ts.do(t, http.MethodPost, "/api/matrix", token, body)
			if w.Code != http.StatusUnprocessableEntity {
				t.Errorf("status: got %d, want %d, body %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
			}
		})
	}
}

func TestGetMatrix_OwnerOnly(t *testing.T) {
	ts := newTestServer(t, nil)
	aliceToken := ts.login(t, "alice-token")
	bobToken := ts.login(t, "bob-token")
	m := ts.createMatrix(t, aliceToken, scenarioMatrix())

	if w := ts.do(t, http.MethodGet, "/api/matrix/"+m.ID.String(), aliceToken, nil); w.Code != http.StatusOK {
		t.Errorf("owner: got %d, want %d", w.Code, http.StatusOK)
	}
	for _, path := range []string{"/api/matrix/", "/api/matrix-data/", "/api/cell/", "/api/categories/"} {
		if w := ts.do(t, http.MethodGet, path+m.ID.String(), bobToken, nil); w.Code != http.StatusNotFound {
			t.Errorf("%s as other user: got %d, want %d", path, w.Code, http.StatusNotFound)
		}
	}
}

func TestGetMatrixData(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t, "alice-token")
	m := ts.createMatrix(t, token, scenarioMatrix())

	w := ts.do(t, http.MethodGet, "/api/matrix-data/"+m.ID.String(), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp MatrixConfigBody
	decode(t, w, &resp)
	if diff := cmp.Diff(m.Config, resp.Data); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestListMatrices_NewestFirstWithCursor(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t, "alice-token")
	var names []string
	for _, name := range []string{"one", "two", "three"} {
		body := scenarioMatrix()
		body.Name = name
		ts.createMatrix(t, token, body)
		names = append([]string{name}, names...)
	}

	var got []string
	cursor := ""
	for range 3 {
		path := "/api/matrix?limit=2"
		if cursor != "" {
			path += "&cursor=" + cursor
		}
		w := ts.do(t, http.MethodGet, path, token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
		}
		var resp MatrixPageBody
		decode(t, w, &resp)
		for _, m := range resp.Data.Matrices {
			got = append(got, m.Name)
		}
		if !resp.Data.HasMore {
			break
		}
		cursor = resp.Data.NextCursor
	}

	if diff := cmp.Diff(names, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestListMatrices_InvalidCursor(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t, "alice-token")

	w := ts.do(t, http.MethodGet, "/api/matrix?cursor=garbage", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestDeleteMatrix_Cascades(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t, "alice-token")
	m := ts.createMatrix(t, token, scenarioMatrix())
	id := m.ID.String()

	ts.do(t, http.MethodPost, "/api/categories/"+id, token, CategoryBody{Name: "Work", Color: "#ff0000"})
	red := "#ff0000"
	ts.do(t, http.MethodPut, "/api/cell/"+id, token, SaveCellsBody{Cells: []CellBody{{Index: 0, ColorHex: &red}}})

	if w := ts.do(t, http.MethodDelete, "/api/matrix/"+id, token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d, want %d", w.Code, http.StatusNoContent)
	}
	if w := ts.do(t, http.MethodGet, "/api/matrix/"+id, token, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: got %d, want %d", w.Code, http.StatusNotFound)
	}
	if len(ts.store.categories[m.ID]) != 0 || len(ts.store.cells[m.ID]) != 0 {
		t.Error("categories and cells should be removed with the matrix")
	}
	if w := ts.do(t, http.MethodDelete, "/api/matrix/"+id, token, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete: got %d, want %d", w.Code, http.StatusNotFound)
	}
}
