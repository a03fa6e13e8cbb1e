package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"jobtalk/internal/application"
	"jobtalk/internal/document"
	"jobtalk/internal/domain"
)

const smallBody = 64 << 10

type transcribeRequest struct {
	AudioDataURI string `json:"audioDataUri"`
}

type transcribeResponse struct {
	Transcription string `json:"transcription"`
}

type categorizeRequest struct {
	TranscribedText string `json:"transcribedText"`
}

type valueRequest struct {
	Value string `json:"value"`
}

type wordRequest struct {
	Word string `json:"word"`
}

type lineItemRequest struct {
	Quantity float64 `json:"quantity"`
	ItemName string  `json:"itemName"`
	Price    float64 `json:"price"`
}

type descriptionRequest struct {
	Description string `json:"description"`
}

type paymentRequest struct {
	DownPaymentPercent *float64 `json:"downPaymentPercent"`
	Terms              *string  `json:"terms"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := decodeJSON(w, r, s.cfg.MaxAudioBytes, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	text, err := s.pipeline.TranscribeDataURI(r.Context(), req.AudioDataURI)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transcribeResponse{Transcription: text})
}

func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	var req categorizeRequest
	if err := decodeJSON(w, r, smallBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	fields, err := s.pipeline.Categorize(r.Context(), req.TranscribedText)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, fields)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := s.registry.Create()
	writeJSON(w, http.StatusCreated, session.View())
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*application.Session, bool) {
	session, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return session, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.View())
}

func (s *Server) handleIntake(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req transcribeRequest
	if err := decodeJSON(w, r, s.cfg.MaxAudioBytes, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	audio, err := domain.ParseDataURI(req.AudioDataURI)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := session.Intake(r.Context(), audio); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session.View())
}

func (s *Server) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	session.StartRecording()
	writeJSON(w, http.StatusOK, session.View())
}

func (s *Server) handleStopRecording(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	session.StopRecording()
	writeJSON(w, http.StatusOK, session.View())
}

func (s *Server) handleWord(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req wordRequest
	if err := decodeJSON(w, r, smallBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	session.HearWord(req.Word)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	s.editValue(w, r, func(f *application.FieldStore, value string) error {
		return f.SetField(r.PathValue("name"), value)
	})
}

func (s *Server) handleSetContact(w http.ResponseWriter, r *http.Request) {
	s.editValue(w, r, func(f *application.FieldStore, value string) error {
		return f.SetContactField(r.PathValue("name"), value)
	})
}

func (s *Server) editValue(w http.ResponseWriter, r *http.Request, set func(*application.FieldStore, string) error) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req valueRequest
	if err := decodeJSON(w, r, smallBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	err := session.Edit(func(f *application.FieldStore) error {
		return set(f, req.Value)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session.View())
}

func (s *Server) handleAddLineItem(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req lineItemRequest
	if err := decodeJSON(w, r, smallBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var item domain.LineItem
	err := session.Edit(func(f *application.FieldStore) error {
		var err error
		item, err = f.AddLineItem(req.Quantity, req.ItemName, req.Price)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleRemoveLineItem(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	_ = session.Edit(func(f *application.FieldStore) error {
		f.RemoveLineItem(r.PathValue("itemID"))
		return nil
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddImage(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxImageBytes+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, &domain.ValidationError{Field: "file", Reason: "multipart field \"file\" is required", Err: err})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxImageBytes+1))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("reading upload: %w", err))
		return
	}
	if int64(len(data)) > s.cfg.MaxImageBytes {
		s.writeError(w, r, &domain.ValidationError{Field: "file", Reason: fmt.Sprintf("image exceeds %d bytes", s.cfg.MaxImageBytes)})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	var img domain.ImageAttachment
	err = session.Edit(func(f *application.FieldStore) error {
		var err error
		img, err = f.AddImage(contentType, data)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, img)
}

func (s *Server) handleDescribeImage(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req descriptionRequest
	if err := decodeJSON(w, r, smallBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	err := session.Edit(func(f *application.FieldStore) error {
		return f.SetImageDescription(r.PathValue("imageID"), req.Description)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session.View())
}

func (s *Server) handleRemoveImage(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	_ = session.Edit(func(f *application.FieldStore) error {
		f.RemoveImage(r.PathValue("imageID"))
		return nil
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetPayment(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req paymentRequest
	if err := decodeJSON(w, r, smallBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	err := session.Edit(func(f *application.FieldStore) error {
		if req.DownPaymentPercent != nil {
			if err := f.SetDownPayment(*req.DownPaymentPercent); err != nil {
				return err
			}
		}
		if req.Terms != nil {
			f.SetTerms(*req.Terms)
		}
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session.View())
}

func (s *Server) handleSessionDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	snap := session.Snapshot()
	s.writeDocument(w, r, document.Proposal{
		Title:              s.cfg.Document.Title,
		Fields:             snap.Fields,
		LineItems:          snap.LineItems,
		Images:             snap.Images,
		DownPaymentPercent: snap.DownPaymentPercent,
		Terms:              snap.Terms,
		Date:               s.now(),
	})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	defaults := s.cfg.Document
	defaults.Date = s.now()
	s.writeDocument(w, r, document.FromParams(r.URL.Query(), defaults))
}

func (s *Server) writeDocument(w http.ResponseWriter, r *http.Request, p document.Proposal) {
	doc, err := document.Render(p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "markdown") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, doc.Markdown)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Job Proposal</title></head>\n<body>\n%s</body></html>\n", doc.HTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	status := "ok"
	statusCode := http.StatusOK
	if !running {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, map[string]any{
		"status":   status,
		"running":  running,
		"sessions": s.registry.Len(),
	})
}
