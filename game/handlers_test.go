package game

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/faizsupianwork/temberang/domain"
)

type MockReferenceStore struct {
	mock.Mock
}

func (m *MockReferenceStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *MockReferenceStore) SaveWordPack(ctx context.Context, id, name string, pairs []domain.WordPackPair) error {
	args := m.Called(ctx, id, name, pairs)
	return args.Error(0)
}

func newTestRouter(st *MockStore, refs ReferenceStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := NewService(st, ServiceConfig{Seed: 1}, zerolog.Nop())
	h := NewHandler(svc, refs, zerolog.Nop())

	r := gin.New()
	r.POST("/api/rooms", h.CreateRoomHandler)
	r.GET("/api/rooms/:code", h.GetRoomHandler)
	r.GET("/api/categories", h.GetCategoriesHandler)
	r.POST("/api/wordpacks", h.UploadWordpackHandler)
	r.POST("/api/poll", h.PollActionHandler)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateRoomHandler(t *testing.T) {
	st := &MockStore{}
	st.On("CreateRoom", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(int64(1), nil)
	st.On("InsertPlayer", mock.Anything, int64(1), mock.Anything, "Aina", true, mock.Anything).Return(nil)

	r := newTestRouter(st, &MockReferenceStore{})
	w := postJSON(t, r, "/api/rooms", gin.H{"player_name": "Aina"})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["room_code"], roomCodeLength)
	assert.Contains(t, body["player_id"], "player_")
	assert.Equal(t, true, body["is_host"])
}

func TestCreateRoomHandlerRequiresName(t *testing.T) {
	r := newTestRouter(&MockStore{}, &MockReferenceStore{})
	w := postJSON(t, r, "/api/rooms", gin.H{"player_name": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRoomHandlerUppercasesCode(t *testing.T) {
	st := &MockStore{}
	st.On("Snapshot", mock.Anything, "ROOM42").
		Return(domain.RoomSnapshot{RoomCode: "ROOM42", UpdatedAt: 5}, nil)

	r := newTestRouter(st, &MockReferenceStore{})
	req := httptest.NewRequest(http.MethodGet, "/api/rooms/room42", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	st.AssertExpectations(t)
}

func TestGetRoomHandlerNotFound(t *testing.T) {
	st := &MockStore{}
	st.On("Snapshot", mock.Anything, "NOPE42").
		Return(domain.RoomSnapshot{}, domain.ErrRoomNotFound)

	r := newTestRouter(st, &MockReferenceStore{})
	req := httptest.NewRequest(http.MethodGet, "/api/rooms/NOPE42", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPollJoinRoom(t *testing.T) {
	st := &MockStore{}
	stubLobby(st, 2)
	st.On("InsertPlayer", mock.Anything, int64(1), "p9", "Cika", false, mock.Anything).Return(nil)

	r := newTestRouter(st, &MockReferenceStore{})
	w := postJSON(t, r, "/api/poll", gin.H{
		"action":      "join_room",
		"room_code":   strings.ToLower(testRoomCode),
		"player_id":   "p9",
		"player_name": "Cika",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	room := body["room"].(map[string]any)
	assert.Equal(t, testRoomCode, room["room_code"])
	assert.Len(t, room["players"], 3)
}

func TestPollUnknownAction(t *testing.T) {
	r := newTestRouter(&MockStore{}, &MockReferenceStore{})
	w := postJSON(t, r, "/api/poll", gin.H{"action": "self_destruct"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPollStatusMapping(t *testing.T) {
	st := &MockStore{}
	rec, players := roomFixture(testRoomCode, MaxPlayers)
	st.On("RoomByCode", mock.Anything, testRoomCode).Return(rec, nil)
	st.On("PlayersByRoom", mock.Anything, rec.ID).Return(players, nil)

	r := newTestRouter(st, &MockReferenceStore{})
	w := postJSON(t, r, "/api/poll", gin.H{
		"action":      "join_room",
		"room_code":   testRoomCode,
		"player_id":   "p99",
		"player_name": "Late",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
}

func TestGetCategoriesHandler(t *testing.T) {
	refs := &MockReferenceStore{}
	refs.On("ListCategories", mock.Anything).Return([]domain.Category{
		{ID: 1, Name: "food", NameMS: "Makanan"},
	}, nil)

	r := newTestRouter(&MockStore{}, refs)
	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["categories"], 1)
}

func TestUploadWordpackHandler(t *testing.T) {
	refs := &MockReferenceStore{}
	refs.On("SaveWordPack", mock.Anything, mock.Anything, "pack.csv", mock.Anything).Return(nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("wordpack", "pack.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("majoriti,imposter\nkucing,harimau\nnasi,mee\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := newTestRouter(&MockStore{}, refs)
	req := httptest.NewRequest(http.MethodPost, "/api/wordpacks", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["word_count"])
	assert.NotEmpty(t, body["wordpack_id"])
}

func TestParseWordpackCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr string
	}{
		{
			name:  "valid with extra column",
			input: "category,majoriti,imposter\nhaiwan,kucing,harimau\n",
			want:  1,
		},
		{
			name:  "blank and short rows skipped",
			input: "majoriti,imposter\nkucing,harimau\n,\nsolo\nnasi,mee\n",
			want:  2,
		},
		{
			name:    "missing imposter column",
			input:   "majoriti,penyamar\nkucing,harimau\n",
			wantErr: "header must contain",
		},
		{
			name:    "header only",
			input:   "majoriti,imposter\n",
			wantErr: "no valid word pairs",
		},
		{
			name:    "empty file",
			input:   "",
			wantErr: "header row required",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pairs, err := parseWordpackCSV(strings.NewReader(tc.input))
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, pairs, tc.want)
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrRoomNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrRoomFull))
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.ErrInvalidVote))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.UnexpectedDatabaseError))
}
