package fileserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brewchat/internal/model"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAndServe(t *testing.T) {
	svc := New(t.TempDir(), 1<<20)

	rec := httptest.NewRecorder()
	svc.Upload(rec, uploadRequest(t, "latte art.png", pngHeader))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ContentType != model.ContentTypeImage {
		t.Errorf("content type = %q, want image", resp.ContentType)
	}
	if resp.FileName != "latte art.png" {
		t.Errorf("file name = %q", resp.FileName)
	}
	if resp.FileSize != int64(len(pngHeader)) {
		t.Errorf("file size = %d, want %d", resp.FileSize, len(pngHeader))
	}
	if !strings.HasPrefix(resp.URL, "/api/files/") {
		t.Fatalf("url = %q", resp.URL)
	}

	stored := strings.TrimPrefix(resp.URL, "/api/files/")
	serveRec := httptest.NewRecorder()
	serveReq := httptest.NewRequest(http.MethodGet, resp.URL+"?name=latte+art.png", nil)
	svc.Serve(serveRec, serveReq, stored)
	if serveRec.Code != http.StatusOK {
		t.Fatalf("serve status = %d", serveRec.Code)
	}
	if !bytes.Equal(serveRec.Body.Bytes(), pngHeader) {
		t.Error("served content differs from uploaded content")
	}
	if ct := serveRec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("served content type = %q", ct)
	}
	if cd := serveRec.Header().Get("Content-Disposition"); !strings.Contains(cd, "latte%20art.png") {
		t.Errorf("content disposition = %q", cd)
	}
}

func TestUploadRejectsBlockedExtension(t *testing.T) {
	svc := New(t.TempDir(), 1<<20)
	rec := httptest.NewRecorder()
	svc.Upload(rec, uploadRequest(t, "run.sh", []byte("#!/bin/sh\n")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadRejectsMismatchedMagic(t *testing.T) {
	svc := New(t.TempDir(), 1<<20)
	rec := httptest.NewRecorder()
	svc.Upload(rec, uploadRequest(t, "fake.png", []byte("definitely not a png")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestServeUnknownFile(t *testing.T) {
	svc := New(t.TempDir(), 1<<20)
	rec := httptest.NewRecorder()
	svc.Serve(rec, httptest.NewRequest(http.MethodGet, "/api/files/missing.png", nil), "missing.png")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
