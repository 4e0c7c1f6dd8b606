package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/studystream/study-stream/internal/database"
	"github.com/studystream/study-stream/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type paperFile struct {
	slot        string
	filename    string
	contentType string
}

func papersBody(t *testing.T, fields map[string]string, files []paperFile) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for name, value := range fields {
		assert.NoError(t, mw.WriteField(name, value))
	}

	for _, file := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+file.slot+`"; filename="`+file.filename+`"`)
		h.Set("Content-Type", file.contentType)

		pw, err := mw.CreatePart(h)
		assert.NoError(t, err)
		_, err = pw.Write([]byte("file-bytes"))
		assert.NoError(t, err)
	}

	assert.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func Test_uploadPapers(t *testing.T) {
	t.Run("stores slots and creates the record", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("CreatePaper", mock.MatchedBy(func(p database.CreatePaperParams) bool {
			return p.Subject == "Algorithms" &&
				p.Semester == 3 &&
				p.UploaderId == 1 &&
				strings.HasPrefix(p.Mst1Url, "http://localhost:8000/uploads/") &&
				strings.HasSuffix(p.NotesUrl, ".pdf") &&
				p.Mst2Url == "" && p.Mst3Url == "" && p.EndsemUrl == ""
		})).Return(database.Paper{
			Id:           1,
			Subject:      "Algorithms",
			Semester:     3,
			Mst1Url:      "http://localhost:8000/uploads/a.pdf",
			NotesUrl:     "http://localhost:8000/uploads/b.pdf",
			UploaderId:   1,
			UploaderName: "alice",
		}, nil)

		app, _ := newTestApp(t, db)

		body, contentType := papersBody(t,
			map[string]string{"subject": "Algorithms", "semester": "3"},
			[]paperFile{
				{slot: "mst1", filename: "mst1.pdf", contentType: "application/pdf"},
				{slot: "notes", filename: "notes.pdf", contentType: "application/pdf"},
			})

		r := authedRequest(http.MethodPost, "/api/papers", body)
		r.Header.Set("Content-Type", contentType)

		w := httptest.NewRecorder()
		app.uploadPapers(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp UploadPapersResponse
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "Papers uploaded successfully", resp.Message)
		assert.Equal(t, "Algorithms", resp.Paper.Subject)
		assert.Equal(t, "alice", resp.Paper.UploadedBy.Username)
		db.AssertExpectations(t)
	})

	t.Run("missing subject", func(t *testing.T) {
		db := &database.MockRepository{}
		app, _ := newTestApp(t, db)

		body, contentType := papersBody(t,
			map[string]string{"semester": "3"},
			[]paperFile{{slot: "mst1", filename: "mst1.pdf", contentType: "application/pdf"}})

		r := authedRequest(http.MethodPost, "/api/papers", body)
		r.Header.Set("Content-Type", contentType)

		w := httptest.NewRecorder()
		app.uploadPapers(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		db.AssertNotCalled(t, "CreatePaper", mock.Anything)
	})

	t.Run("no files", func(t *testing.T) {
		db := &database.MockRepository{}
		app, _ := newTestApp(t, db)

		body, contentType := papersBody(t,
			map[string]string{"subject": "Algorithms", "semester": "3"}, nil)

		r := authedRequest(http.MethodPost, "/api/papers", body)
		r.Header.Set("Content-Type", contentType)

		w := httptest.NewRecorder()
		app.uploadPapers(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		db.AssertNotCalled(t, "CreatePaper", mock.Anything)
	})

	t.Run("disallowed file type", func(t *testing.T) {
		db := &database.MockRepository{}
		app, _ := newTestApp(t, db)

		body, contentType := papersBody(t,
			map[string]string{"subject": "Algorithms", "semester": "3"},
			[]paperFile{{slot: "mst1", filename: "mst1.sh", contentType: "text/x-shellscript"}})

		r := authedRequest(http.MethodPost, "/api/papers", body)
		r.Header.Set("Content-Type", contentType)

		w := httptest.NewRecorder()
		app.uploadPapers(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		db.AssertNotCalled(t, "CreatePaper", mock.Anything)
	})
}

func Test_listPapers(t *testing.T) {
	uploaded := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	db := &database.MockRepository{}
	db.On("ListPapers", 0).Return([]database.Paper{
		{Id: 2, Subject: "Algorithms", Semester: 3, Mst1Url: "http://localhost:8000/uploads/a.pdf",
			UploaderId: 1, UploaderName: "alice", UploadedAt: uploaded.Add(time.Hour)},
		{Id: 1, Subject: "Databases", Semester: 4, UploaderId: 2, UploaderName: "bob", UploadedAt: uploaded},
	}, nil)

	app, _ := newTestApp(t, db)

	w := httptest.NewRecorder()
	app.listPapers(w, httptest.NewRequest(http.MethodGet, "/api/papers", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var papers []types.Paper
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&papers))
	if assert.Len(t, papers, 2) {
		assert.Equal(t, "Algorithms", papers[0].Subject)
		assert.Equal(t, "alice", papers[0].UploadedBy.Username)
		assert.Equal(t, "Databases", papers[1].Subject)
	}
}

func Test_listPapersBySemester(t *testing.T) {
	t.Run("filters by semester", func(t *testing.T) {
		db := &database.MockRepository{}
		db.On("ListPapers", 3).Return([]database.Paper{
			{Id: 1, Subject: "Algorithms", Semester: 3, UploaderId: 1, UploaderName: "alice"},
		}, nil)

		app, _ := newTestApp(t, db)

		r := httptest.NewRequest(http.MethodGet, "/api/papers/semester/3", nil)
		r.SetPathValue("semester", "3")

		w := httptest.NewRecorder()
		app.listPapersBySemester(w, r)

		assert.Equal(t, http.StatusOK, w.Code)

		var papers []types.Paper
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&papers))
		if assert.Len(t, papers, 1) {
			assert.Equal(t, 3, papers[0].Semester)
		}
		db.AssertExpectations(t)
	})

	t.Run("invalid semester", func(t *testing.T) {
		db := &database.MockRepository{}
		app, _ := newTestApp(t, db)

		r := httptest.NewRequest(http.MethodGet, "/api/papers/semester/zero", nil)
		r.SetPathValue("semester", "zero")

		w := httptest.NewRecorder()
		app.listPapersBySemester(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		db.AssertNotCalled(t, "ListPapers", mock.Anything)
	})
}
