package model

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateContent(t *testing.T) {
	meta := &FileMeta{FileName: "latte.png", FileSize: 1024, MimeType: "image/png", URL: "/api/files/x.png"}
	cases := []struct {
		name    string
		msg     Message
		wantErr error
	}{
		{"plain text", Message{ContentType: ContentTypeText, Content: "hello"}, nil},
		{"text at max length", Message{ContentType: ContentTypeText, Content: strings.Repeat("a", MaxContentLen)}, nil},
		{"text over max length", Message{ContentType: ContentTypeText, Content: strings.Repeat("a", MaxContentLen+1)}, ErrContentTooLong},
		{"multibyte runes count as one", Message{ContentType: ContentTypeText, Content: strings.Repeat("ё", MaxContentLen)}, nil},
		{"empty text", Message{ContentType: ContentTypeText}, ErrEmptyContent},
		{"text with attachment", Message{ContentType: ContentTypeText, Content: "x", FileMeta: meta}, ErrAmbiguousVariant},
		{"image with attachment", Message{ContentType: ContentTypeImage, FileMeta: meta}, nil},
		{"image with caption", Message{ContentType: ContentTypeImage, Content: "my latte", FileMeta: meta}, nil},
		{"image without attachment", Message{ContentType: ContentTypeImage}, ErrAmbiguousVariant},
		{"file without url", Message{ContentType: ContentTypeFile, FileMeta: &FileMeta{FileName: "a.pdf"}}, ErrAmbiguousVariant},
		{"unknown type", Message{ContentType: "sticker", Content: "x"}, ErrBadContentType},
		{"missing type", Message{Content: "x"}, ErrBadContentType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.ValidateContent()
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ValidateContent() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("к", 300)
	cases := []struct {
		name string
		msg  Message
		want string
	}{
		{"short text verbatim", Message{ContentType: ContentTypeText, Content: "see you at the counter"}, "see you at the counter"},
		{"long text truncated", Message{ContentType: ContentTypeText, Content: long}, strings.Repeat("к", 117) + "..."},
		{"file uses filename", Message{ContentType: ContentTypeFile, FileMeta: &FileMeta{FileName: "menu.pdf"}}, "menu.pdf"},
		{"image without name falls back to type", Message{ContentType: ContentTypeImage, FileMeta: &FileMeta{URL: "/x"}}, "image"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.msg.Preview(); got != tc.want {
				t.Fatalf("Preview() = %q, want %q", got, tc.want)
			}
		})
	}
}
