package client

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-chronos/internal/model"
)

// Session is a signed-in session.
type Session struct {
	User      model.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// MatrixPage is one page of the matrix listing.
type MatrixPage struct {
	Matrices   []model.Matrix `json:"matrices"`
	NextCursor string         `json:"nextCursor"`
	HasMore    bool           `json:"hasMore"`
}

// LoginGoogle exchanges a Google ID token for a session and starts using it.
func (c *Client) LoginGoogle(ctx context.Context, idToken string) (*Session, error) {
	r, err := jsonRequest(http.MethodPost, "/api/auth/google", map[string]string{"idToken": idToken})
	if err != nil {
		return nil, err
	}
	var s Session
	if err := c.do(ctx, r, &s); err != nil {
		return nil, err
	}
	c.SetToken(s.Token)
	return &s, nil
}

// CheckAuth returns the signed-in user.
func (c *Client) CheckAuth(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/auth/check-auth"}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout revokes the session and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/auth/logout"}, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// Profile returns the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/profile/me"}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile changes the name when name is non-nil and uploads avatar when
// it is non-nil.
func (c *Client) UpdateProfile(ctx context.Context, name *string, avatar io.Reader, filename string) (*model.User, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if name != nil {
		if err := mw.WriteField("name", *name); err != nil {
			return nil, &Error{Kind: KindValidation, Message: "encode form", Err: err}
		}
	}
	if avatar != nil {
		if filename == "" {
			filename = "avatar"
		}
		fw, err := mw.CreateFormFile("avatar", filename)
		if err != nil {
			return nil, &Error{Kind: KindValidation, Message: "encode form", Err: err}
		}
		if _, err := io.Copy(fw, avatar); err != nil {
			return nil, &Error{Kind: KindValidation, Message: "read avatar", Err: err}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, &Error{Kind: KindValidation, Message: "encode form", Err: err}
	}

	r := request{
		method:      http.MethodPatch,
		path:        "/api/profile/me",
		raw:         buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}
	var u model.User
	if err := c.do(ctx, r, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListMatrices returns one page of matrices, newest first. An empty cursor
// starts at the newest; limit 0 uses the server default.
func (c *Client) ListMatrices(ctx context.Context, cursor string, limit int) (*MatrixPage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/matrix"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var page MatrixPage
	if err := c.do(ctx, request{method: http.MethodGet, path: path}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AllMatrices follows cursors until every matrix has been listed.
func (c *Client) AllMatrices(ctx context.Context) ([]model.Matrix, error) {
	var (
		all    []model.Matrix
		cursor string
	)
	for {
		page, err := c.ListMatrices(ctx, cursor, 100)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Matrices...)
		if !page.HasMore || page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

func (c *Client) CreateMatrix(ctx context.Context, req model.NewMatrix) (*model.Matrix, error) {
	r, err := jsonRequest(http.MethodPost, "/api/matrix", req)
	if err != nil {
		return nil, err
	}
	var m model.Matrix
	if err := c.do(ctx, r, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) GetMatrix(ctx context.Context, id uuid.UUID) (*model.Matrix, error) {
	var m model.Matrix
	if err := c.do(ctx, request{method: http.MethodGet, path: pathf("/api/matrix/%s", id)}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) DeleteMatrix(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, request{method: http.MethodDelete, path: pathf("/api/matrix/%s", id)}, nil)
}

// MatrixConfig fetches the grid configuration of a matrix.
func (c *Client) MatrixConfig(ctx context.Context, id uuid.UUID) (model.MatrixConfig, error) {
	var cfg model.MatrixConfig
	if err := c.do(ctx, request{method: http.MethodGet, path: pathf("/api/matrix-data/%s", id)}, &cfg); err != nil {
		return model.MatrixConfig{}, err
	}
	return cfg, nil
}

// ListCells fetches the stored cells of a matrix.
func (c *Client) ListCells(ctx context.Context, matrixID uuid.UUID) ([]model.Cell, error) {
	cells := []model.Cell{}
	if err := c.do(ctx, request{method: http.MethodGet, path: pathf("/api/cell/%s", matrixID)}, &cells); err != nil {
		return nil, err
	}
	return cells, nil
}

// SaveCells sends a partial update and returns the full resulting cell set.
// Unfilled cells travel as null and are deleted by the server.
func (c *Client) SaveCells(ctx context.Context, matrixID uuid.UUID, cells []model.Cell) ([]model.Cell, error) {
	r, err := jsonRequest(http.MethodPut, pathf("/api/cell/%s", matrixID), struct {
		Cells []model.Cell `json:"cells"`
	}{Cells: cells})
	if err != nil {
		return nil, err
	}
	saved := []model.Cell{}
	if err := c.do(ctx, r, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

func (c *Client) ListCategories(ctx context.Context, matrixID uuid.UUID) ([]model.Category, error) {
	categories := []model.Category{}
	if err := c.do(ctx, request{method: http.MethodGet, path: pathf("/api/categories/%s", matrixID)}, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

type categoryBody struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (c *Client) CreateCategory(ctx context.Context, matrixID uuid.UUID, name, color string) (*model.Category, error) {
	r, err := jsonRequest(http.MethodPost, pathf("/api/categories/%s", matrixID), categoryBody{Name: name, Color: color})
	if err != nil {
		return nil, err
	}
	var cat model.Category
	if err := c.do(ctx, r, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Client) UpdateCategory(ctx context.Context, matrixID, id uuid.UUID, name, color string) (*model.Category, error) {
	r, err := jsonRequest(http.MethodPut, pathf("/api/categories/%s/%s", matrixID, id), categoryBody{Name: name, Color: color})
	if err != nil {
		return nil, err
	}
	var cat model.Category
	if err := c.do(ctx, r, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Client) DeleteCategory(ctx context.Context, matrixID, id uuid.UUID) error {
	return c.do(ctx, request{method: http.MethodDelete, path: pathf("/api/categories/%s/%s", matrixID, id)}, nil)
}
