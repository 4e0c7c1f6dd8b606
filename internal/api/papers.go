package api

import (
	"net/http"
	"strconv"

	"github.com/studystream/study-stream/internal/blob"
	"github.com/studystream/study-stream/internal/database"
	"github.com/studystream/study-stream/internal/types"
)

// paperSlots are the accepted multipart field names, one file each.
var paperSlots = []string{"mst1", "mst2", "mst3", "endsem", "notes"}

type UploadPapersRequest struct {
	Subject  string `validate:"required,max=200"`
	Semester int    `validate:"required,min=1"`
}

type UploadPapersResponse struct {
	Message string      `json:"message"`
	Paper   types.Paper `json:"paper"`
}

func (s *ChatApp) listPapers(w http.ResponseWriter, _ *http.Request) {
	s.writePapers(w, 0)
}

func (s *ChatApp) listPapersBySemester(w http.ResponseWriter, r *http.Request) {
	semester, err := strconv.Atoi(r.PathValue("semester"))
	if err != nil || semester < 1 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writePapers(w, semester)
}

func (s *ChatApp) writePapers(w http.ResponseWriter, semester int) {
	dbPapers, err := s.db.ListPapers(semester)
	if err != nil {
		s.log.Println("list papers:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	papers := make([]types.Paper, 0, len(dbPapers))
	for _, p := range dbPapers {
		papers = append(papers, materializePaper(p))
	}

	s.writeJson(w, http.StatusOK, papers)
}

func (s *ChatApp) uploadPapers(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := r.ParseMultipartForm(blob.MaxFileSize); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	semester, _ := strconv.Atoi(r.FormValue("semester"))
	req := UploadPapersRequest{
		Subject:  r.FormValue("subject"),
		Semester: semester,
	}
	if err := s.validate.Struct(req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreatePaperParams{
		Subject:    req.Subject,
		Semester:   req.Semester,
		UploaderId: userId,
	}
	targets := map[string]*string{
		"mst1":   &params.Mst1Url,
		"mst2":   &params.Mst2Url,
		"mst3":   &params.Mst3Url,
		"endsem": &params.EndsemUrl,
		"notes":  &params.NotesUrl,
	}

	uploaded := 0
	for _, slot := range paperSlots {
		files := r.MultipartForm.File[slot]
		if len(files) == 0 {
			continue
		}

		header := files[0]
		contentType := header.Header.Get("Content-Type")
		if !blob.AllowedType(contentType) || header.Size > blob.MaxFileSize {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		f, err := header.Open()
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		url, err := s.blobStore.Put(r.Context(), blob.ObjectName(header.Filename), contentType, f)
		f.Close()
		if err != nil {
			s.log.Println("store paper:", err)
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		*targets[slot] = url
		uploaded++
	}

	if uploaded == 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	paper, err := s.db.CreatePaper(params)
	if err != nil {
		s.log.Println("create paper:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, UploadPapersResponse{
		Message: "Papers uploaded successfully",
		Paper:   materializePaper(paper),
	})
}

func materializePaper(p database.Paper) types.Paper {
	return types.Paper{
		Id:        p.Id,
		Subject:   p.Subject,
		Semester:  p.Semester,
		Mst1Url:   p.Mst1Url,
		Mst2Url:   p.Mst2Url,
		Mst3Url:   p.Mst3Url,
		EndsemUrl: p.EndsemUrl,
		NotesUrl:  p.NotesUrl,
		UploadedBy: types.User{
			Id:           p.UploaderId,
			Username:     p.UploaderName,
			EmailAddress: p.UploaderEmail,
		},
		UploadedAt: p.UploadedAt,
	}
}
