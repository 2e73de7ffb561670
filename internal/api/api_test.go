package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/starford/loaderd/internal/models"
	"github.com/starford/loaderd/internal/store"
	"github.com/starford/loaderd/internal/testutil"
	"github.com/starford/loaderd/internal/tracker"
)

func testRouter(t *testing.T) (http.Handler, *store.DB) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := testutil.TestDB(t)
	snaps := testutil.TestSnapshots(t)
	// Capacity 2 and no draining worker: topic creation auto-queues one
	// run, leaving exactly one free slot for the run-endpoint tests.
	runner := tracker.NewRunner(db, nil, 2, logger)

	router := NewRouter(Deps{
		DB:         db,
		Snapshots:  snaps,
		Runner:     runner,
		UploadsDir: t.TempDir(),
		MaxUpload:  1 << 20,
		UploadTTL:  time.Hour,
		Logger:     logger,
	})
	return router, db
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
	return v
}

func registerUser(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	resp := decode[registerResponse](t, rec)
	if resp.APIKey == "" || resp.UserID == "" {
		t.Fatalf("register response incomplete: %+v", resp)
	}
	return resp.APIKey
}

func TestRegisterAndVerify(t *testing.T) {
	router, _ := testRouter(t)
	key := registerUser(t, router)

	rec := doJSON(t, router, http.MethodGet, "/auth/verify", key, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: %d", rec.Code)
	}
	resp := decode[verifyResponse](t, rec)
	if !resp.Valid {
		t.Error("valid key reported invalid")
	}

	if rec := doJSON(t, router, http.MethodGet, "/auth/verify", "ll_bogus", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("bogus key: %d, want 401", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/auth/verify", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing key: %d, want 401", rec.Code)
	}
}

func TestTopicCRUD(t *testing.T) {
	router, _ := testRouter(t)
	key := registerUser(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/tracker/", key, map[string]any{
		"name":     "Quantum Computing",
		"keywords": []string{"qubits"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	created := decode[topicView](t, rec)
	if created.IntervalHours != 24 {
		t.Errorf("default interval = %d, want 24", created.IntervalHours)
	}
	if len(created.Keywords) != 1 || created.Keywords[0] != "qubits" {
		t.Errorf("keywords = %v", created.Keywords)
	}

	// Missing name rejected.
	if rec := doJSON(t, router, http.MethodPost, "/api/tracker/", key, map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty create: %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/tracker/", key, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	list := decode[topicListResponse](t, rec)
	if list.Total != 1 {
		t.Fatalf("total = %d", list.Total)
	}

	id := list.Topics[0].ID
	path := "/api/tracker/" + itoa(id)

	rec = doJSON(t, router, http.MethodPatch, path, key, map[string]any{
		"name":   "Quantum",
		"status": "paused",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	updated := decode[topicView](t, rec)
	if updated.Name != "Quantum" || updated.Status != models.TopicPaused {
		t.Errorf("update not applied: %+v", updated)
	}

	// Another user cannot see it.
	otherKey := registerUser(t, router)
	if rec := doJSON(t, router, http.MethodGet, path, otherKey, nil); rec.Code != http.StatusNotFound {
		t.Errorf("cross-user get: %d, want 404", rec.Code)
	}

	if rec := doJSON(t, router, http.MethodDelete, path, key, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete: %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, path, key, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: %d", rec.Code)
	}
}

func TestRunEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	key := registerUser(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/tracker/", key, map[string]any{"name": "Topic"})
	created := decode[topicView](t, rec)
	path := "/api/tracker/" + itoa(created.ID) + "/run"

	if rec := doJSON(t, router, http.MethodPost, path, key, nil); rec.Code != http.StatusAccepted {
		t.Fatalf("run: %d %s", rec.Code, rec.Body.String())
	}
	// The auto-queued creation run plus the manual run fill the queue.
	if rec := doJSON(t, router, http.MethodPost, path, key, nil); rec.Code != http.StatusConflict {
		t.Errorf("second run: %d, want 409", rec.Code)
	}
}

func TestPublicTracker(t *testing.T) {
	router, db := testRouter(t)
	key := registerUser(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/tracker/", key, map[string]any{
		"name":      "Quantum Computing",
		"is_public": true,
	})
	created := decode[topicView](t, rec)
	doJSON(t, router, http.MethodPost, "/api/tracker/", key, map[string]any{"name": "Private Topic"})

	if err := db.InsertSnapshotRow(&models.SnapshotRow{
		TopicID: created.ID, SnapshotPath: "x", NodeCount: 4, EdgeCount: 2, SourceCount: 3,
		Summary: "short summary",
	}); err != nil {
		t.Fatal(err)
	}

	rec = doJSON(t, router, http.MethodGet, "/tracker", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("public list: %d", rec.Code)
	}
	list := decode[publicListResponse](t, rec)
	if len(list.Topics) != 1 {
		t.Fatalf("public topics = %d, want 1", len(list.Topics))
	}
	if list.Topics[0].NodeCount != 4 || list.Topics[0].Summary != "short summary" {
		t.Errorf("latest counts not folded in: %+v", list.Topics[0])
	}

	rec = doJSON(t, router, http.MethodGet, "/tracker?keyword=gardening", "", nil)
	if got := decode[publicListResponse](t, rec); len(got.Topics) != 0 {
		t.Errorf("keyword filter leaked %d topics", len(got.Topics))
	}

	if rec := doJSON(t, router, http.MethodGet, "/tracker/"+itoa(created.ID), "", nil); rec.Code != http.StatusOK {
		t.Errorf("public get: %d", rec.Code)
	}
	// No snapshot file written yet.
	if rec := doJSON(t, router, http.MethodGet, "/tracker/"+itoa(created.ID)+"/latest", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("public latest without snapshot: %d, want 404", rec.Code)
	}
}

func TestMdFileEndpoints(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/md", "", map[string]any{
		"content":  "# Title\n\nbody",
		"filename": "doc.md",
		"purpose":  "test doc",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("md create: %d %s", rec.Code, rec.Body.String())
	}
	created := decode[models.MdFile](t, rec)
	if created.Code == "" {
		t.Fatal("no share code assigned")
	}

	if rec := doJSON(t, router, http.MethodPost, "/md", "", map[string]any{"filename": "x.md"}); rec.Code != http.StatusBadRequest {
		t.Errorf("contentless create: %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/md/"+created.Code, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("md get: %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/md/"+created.Code+"/raw", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("md raw: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("raw content type = %q", ct)
	}
	if rec.Body.String() != "# Title\n\nbody" {
		t.Errorf("raw body = %q", rec.Body.String())
	}

	// Raw download bumped the counter.
	rec = doJSON(t, router, http.MethodGet, "/md/"+created.Code, "", nil)
	got := decode[models.MdFile](t, rec)
	if got.DownloadCount != 1 {
		t.Errorf("download_count = %d, want 1", got.DownloadCount)
	}

	rec = doJSON(t, router, http.MethodGet, "/md", "", nil)
	listed := decode[mdListResponse](t, rec)
	if listed.Total != 1 {
		t.Errorf("md total = %d", listed.Total)
	}

	if rec := doJSON(t, router, http.MethodGet, "/md/AAAAAA", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown code: %d, want 404", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/md/bad!!", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed code: %d, want 400", rec.Code)
	}
}

func TestUploadDownload(t *testing.T) {
	router, _ := testRouter(t)

	payload := []byte("backup payload bytes")
	rec := doUpload(t, router, payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	resp := decode[uploadResponse](t, rec)
	if resp.Code == "" || resp.FileSize != int64(len(payload)) {
		t.Fatalf("upload response: %+v", resp)
	}

	dl := doJSON(t, router, http.MethodGet, "/download/"+resp.Code, "", nil)
	if dl.Code != http.StatusOK {
		t.Fatalf("download: %d", dl.Code)
	}
	if !bytes.Equal(dl.Body.Bytes(), payload) {
		t.Error("downloaded bytes differ from upload")
	}

	if rec := doJSON(t, router, http.MethodGet, "/download/AAAAAA", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown code: %d, want 404", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/download/###", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed code: %d, want 400", rec.Code)
	}
}

func TestUploadTooLarge(t *testing.T) {
	router, _ := testRouter(t)

	big := make([]byte, (1<<20)+1)
	rec := doUpload(t, router, big)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversize upload: %d, want 413", rec.Code)
	}
}

func doUpload(t *testing.T, router http.Handler, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "backup.bin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(payload); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
