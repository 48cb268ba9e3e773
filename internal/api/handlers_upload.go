package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/checkcells/checkcells/internal/log"
	"github.com/checkcells/checkcells/internal/media"
	"github.com/checkcells/checkcells/internal/metrics"
	"github.com/checkcells/checkcells/internal/types"
)

// allowedVideoTypes is the accepted upload MIME allow-list.
var allowedVideoTypes = map[string]struct{}{
	"video/mp4":        {},
	"video/webm":       {},
	"video/ogg":        {},
	"video/quicktime":  {},
	"video/x-msvideo":  {},
	"video/x-matroska": {},
}

const maxFilesPerRequest = 10

// uploadedFile describes one stored upload in responses.
type uploadedFile struct {
	OriginalName string `json:"originalName"`
	FileName     string `json:"fileName"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimeType"`
	URL          string `json:"url"`
	S3Key        string `json:"s3Key,omitempty"`
	StorageType  string `json:"storageType"`
}

// uploadMetadata echoes the submitted form fields.
type uploadMetadata struct {
	TestID          string `json:"testId"`
	RecordingNumber string `json:"recordingNumber"`
	Scientist       string `json:"scientist"`
	UploadDate      string `json:"uploadDate"`
}

func (s *Server) uploadMeta(r *http.Request) uploadMetadata {
	meta := uploadMetadata{
		TestID:          r.FormValue("testId"),
		RecordingNumber: r.FormValue("recordingNumber"),
		Scientist:       r.FormValue("scientist"),
		UploadDate:      time.Now().UTC().Format(time.RFC3339),
	}
	if meta.TestID == "" {
		meta.TestID = "unknown"
	}
	if meta.RecordingNumber == "" {
		meta.RecordingNumber = "1"
	}
	if meta.Scientist == "" {
		meta.Scientist = "unknown"
	}
	return meta
}

// storeFile validates and persists one multipart part.
func (s *Server) storeFile(r *http.Request, fh *multipart.FileHeader, meta uploadMetadata, takeIndex int) (uploadedFile, int, string, string) {
	mimeType := fh.Header.Get("Content-Type")
	if _, ok := allowedVideoTypes[mimeType]; !ok {
		metrics.IncRejectedUpload("mime_type")
		return uploadedFile{}, http.StatusBadRequest, "Invalid file",
			"Invalid file type. Only video files (MP4, WebM, OGG, MOV, AVI, MKV) are allowed."
	}

	file, err := fh.Open()
	if err != nil {
		return uploadedFile{}, http.StatusBadRequest, "Upload error", err.Error()
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return uploadedFile{}, http.StatusBadRequest, "Upload error", err.Error()
	}

	ext := filepath.Ext(fh.Filename)
	if ext == "" {
		ext = media.ExtensionForMime(mimeType)
	}

	obj, err := s.store.Put(r.Context(), meta.TestID, takeIndex, data, mimeType, ext, map[string]string{
		"testId":          meta.TestID,
		"recordingNumber": strconv.Itoa(takeIndex),
		"uploadedBy":      meta.Scientist,
		"uploadDate":      meta.UploadDate,
	})
	if err != nil {
		logger := log.WithContext(r.Context(), log.WithComponent("api"))
		logger.Error().Err(err).
			Str(log.FieldSampleID, meta.TestID).
			Str(log.FieldStorage, string(s.location)).
			Msg("storing upload failed")
		return uploadedFile{}, http.StatusInternalServerError, "Upload failed", err.Error()
	}
	metrics.AddUploadBytes(string(s.location), obj.SizeBytes)

	out := uploadedFile{
		OriginalName: fh.Filename,
		FileName:     obj.Key,
		Size:         obj.SizeBytes,
		MimeType:     mimeType,
		URL:          obj.URL,
		StorageType:  "local",
	}
	if s.location == types.StorageRemote {
		out.S3Key = obj.Key
		out.StorageType = "s3"
	}
	return out, 0, "", ""
}

// parseUpload enforces the size cap while reading the multipart body.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			metrics.IncRejectedUpload("too_large")
			writeError(w, http.StatusBadRequest, "File too large",
				"File size exceeds the maximum allowed size of "+strconv.FormatInt(s.cfg.MaxUploadBytes, 10)+" bytes")
			return false
		}
		writeError(w, http.StatusBadRequest, "Upload error", err.Error())
		return false
	}
	return true
}

func (s *Server) handleUploadVideo(w http.ResponseWriter, r *http.Request) {
	if !s.parseUpload(w, r) {
		return
	}

	file, fh, err := r.FormFile("video")
	if err != nil {
		metrics.IncRejectedUpload("no_file")
		writeError(w, http.StatusBadRequest, "No file uploaded", "Please select a video file to upload")
		return
	}
	file.Close()

	meta := s.uploadMeta(r)
	takeIndex, err := strconv.Atoi(meta.RecordingNumber)
	if err != nil || takeIndex < 1 {
		takeIndex = 1
	}

	stored, code, kind, msg := s.storeFile(r, fh, meta, takeIndex)
	if code != 0 {
		writeError(w, code, kind, msg)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Video uploaded successfully",
		"file":     stored,
		"metadata": meta,
	})
}

func (s *Server) handleUploadVideos(w http.ResponseWriter, r *http.Request) {
	if !s.parseUpload(w, r) {
		return
	}

	var parts []*multipart.FileHeader
	if r.MultipartForm != nil {
		parts = r.MultipartForm.File["videos"]
	}
	if len(parts) == 0 {
		metrics.IncRejectedUpload("no_file")
		writeError(w, http.StatusBadRequest, "No files uploaded", "Please select video files to upload")
		return
	}
	if len(parts) > maxFilesPerRequest {
		writeError(w, http.StatusBadRequest, "Upload error",
			"Too many files; at most "+strconv.Itoa(maxFilesPerRequest)+" per request")
		return
	}

	meta := s.uploadMeta(r)
	base, err := strconv.Atoi(meta.RecordingNumber)
	if err != nil || base < 1 {
		base = 1
	}

	stored := make([]uploadedFile, 0, len(parts))
	for i, fh := range parts {
		out, code, kind, msg := s.storeFile(r, fh, meta, base+i)
		if code != 0 {
			writeError(w, code, kind, msg)
			return
		}
		stored = append(stored, out)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  strconv.Itoa(len(stored)) + " video(s) uploaded successfully",
		"files":    stored,
		"metadata": meta,
	})
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	testID := chi.URLParam(r, "testId")

	objects, err := s.store.List(r.Context(), testID)
	if err != nil {
		writeServerError(w, "Failed to fetch videos")
		return
	}

	if len(objects) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"testId":  testID,
			"videos":  []any{},
			"message": "No videos found for this test",
		})
		return
	}

	type videoEntry struct {
		Filename string `json:"filename"`
		URL      string `json:"url"`
		Path     string `json:"path"`
	}
	videos := make([]videoEntry, 0, len(objects))
	for _, obj := range objects {
		if !isVideoKey(obj.Key) {
			continue
		}
		videos = append(videos, videoEntry{
			Filename: path.Base(obj.Key),
			URL:      obj.URL,
			Path:     obj.Key,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"testId":  testID,
		"count":   len(videos),
		"videos":  videos,
	})
}

func isVideoKey(key string) bool {
	switch path.Ext(key) {
	case ".mp4", ".webm", ".ogg", ".ogv", ".mov", ".avi", ".mkv":
		return true
	}
	return false
}
