// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package normalizer

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/a2a"
)

func TestNormalizePlainText(t *testing.T) {
	t.Parallel()

	out, err := Normalize(RawOutput{Text: "Hello", HasText: true})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if out.Kind != KindStatusMessage {
		t.Fatalf("Kind = %v, want status-message", out.Kind)
	}
	want := []a2a.Part{a2a.NewTextPart("Hello")}
	if diff := cmp.Diff(want, out.Parts); diff != "" {
		t.Errorf("Parts mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeQuickRepliesWrapped(t *testing.T) {
	t.Parallel()

	payload := map[string]any{
		"text": "Pick",
		"quickReplies": []any{
			map[string]any{"title": "A"},
			map[string]any{"title": "B"},
		},
	}
	raw := RawOutput{Data: map[string]any{"_quickReplies": payload}}

	out, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(out.Parts) != 2 {
		t.Fatalf("len(Parts) = %d, want 2", len(out.Parts))
	}
	text, ok := out.Parts[0].(*a2a.TextPart)
	if !ok {
		t.Fatalf("Parts[0] = %T, want *a2a.TextPart", out.Parts[0])
	}
	if want := "Pick\n- A\n- B"; text.Text != want {
		t.Errorf("text = %q, want %q", text.Text, want)
	}
	data, ok := out.Parts[1].(*a2a.DataPart)
	if !ok {
		t.Fatalf("Parts[1] = %T, want *a2a.DataPart", out.Parts[1])
	}
	if data.Type != "quick_replies" {
		t.Errorf("data.Type = %q, want quick_replies", data.Type)
	}
	if diff := cmp.Diff(payload, data.Payload); diff != "" {
		t.Errorf("payload round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderersTrimWhitespaceFromHeaderText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
		data map[string]any
	}{
		{
			name: "quick replies",
			key:  "_quickReplies",
			data: map[string]any{
				"text":         "  Pick  \n",
				"quickReplies": []any{map[string]any{"title": "A"}},
			},
		},
		{
			name: "buttons",
			key:  "_buttons",
			data: map[string]any{
				"text":    "  Go  \n",
				"buttons": []any{map[string]any{"title": "A"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := Normalize(RawOutput{Data: map[string]any{tt.key: tt.data}})
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			text, ok := out.Parts[0].(*a2a.TextPart)
			if !ok {
				t.Fatalf("Parts[0] = %T, want *a2a.TextPart", out.Parts[0])
			}
			if strings.HasPrefix(text.Text, " ") || strings.Contains(text.Text, "  \n") {
				t.Errorf("text = %q, want leading/trailing whitespace trimmed from header", text.Text)
			}
		})
	}
}

func TestNormalizeImageArtifact(t *testing.T) {
	t.Parallel()

	raw := RawOutput{Data: map[string]any{
		"_image": map[string]any{"imageUrl": "https://cdn.example/photo.png"},
	}}

	out, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if out.Kind != KindArtifact {
		t.Fatalf("Kind = %v, want artifact", out.Kind)
	}
	if out.MIMEType != "image/png" {
		t.Errorf("MIMEType = %q, want image/png", out.MIMEType)
	}
	if out.Name != "photo.png" {
		t.Errorf("Name = %q, want photo.png", out.Name)
	}
	file, ok := out.Parts[0].(*a2a.FilePart)
	if !ok {
		t.Fatalf("Parts[0] = %T, want *a2a.FilePart", out.Parts[0])
	}
	if file.URI != "https://cdn.example/photo.png" {
		t.Errorf("URI = %q", file.URI)
	}
	fallback, ok := out.Parts[1].(*a2a.TextPart)
	if !ok {
		t.Fatalf("Parts[1] = %T, want *a2a.TextPart", out.Parts[1])
	}
	if want := "[Image: https://cdn.example/photo.png]"; fallback.Text != want {
		t.Errorf("fallback = %q, want %q", fallback.Text, want)
	}
}

func TestInferMediaUnknownExtensionFallsBackToDefault(t *testing.T) {
	t.Parallel()

	mime, name := inferMedia("audio", "https://cdn.example/clip.xyz")
	if mime != "audio/mpeg" {
		t.Errorf("mime = %q, want audio/mpeg", mime)
	}
	if name != "clip.xyz" {
		t.Errorf("name = %q, want clip.xyz", name)
	}
}

func TestInferMediaIdempotentAcrossQueryString(t *testing.T) {
	t.Parallel()

	mime1, _ := inferMedia("image", "https://cdn.example/a.png?v=1")
	mime2, _ := inferMedia("image", "https://cdn.example/a.png?v=2")
	if mime1 != mime2 {
		t.Errorf("mime differs across query strings: %q vs %q", mime1, mime2)
	}
	if mime1 != "image/png" {
		t.Errorf("mime = %q, want image/png", mime1)
	}
}

func TestNormalizeCustomData(t *testing.T) {
	t.Parallel()

	raw := RawOutput{
		Data: map[string]any{
			"_cognigy": map[string]any{"_messageId": "x"},
			"foo":      "bar",
		},
	}
	out, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(out.Parts) != 2 {
		t.Fatalf("len(Parts) = %d, want 2", len(out.Parts))
	}
	data, ok := out.Parts[1].(*a2a.DataPart)
	if !ok {
		t.Fatalf("Parts[1] = %T, want *a2a.DataPart", out.Parts[1])
	}
	if data.Type != "cognigy/data" {
		t.Errorf("data.Type = %q, want cognigy/data", data.Type)
	}
	if _, stillThere := data.Payload.(map[string]any)["_cognigy"]; stillThere {
		t.Errorf("_cognigy key should have been stripped from remaining payload")
	}
}

func TestFlattenEmptyProducesSingleEmptyTextPart(t *testing.T) {
	t.Parallel()

	parts := Flatten(nil)
	want := []a2a.Part{a2a.NewTextPart("")}
	if diff := cmp.Diff(want, parts); diff != "" {
		t.Errorf("Flatten(nil) mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenOrdersAllOutputs(t *testing.T) {
	t.Parallel()

	raws := []RawOutput{
		{Text: "Hello", HasText: true},
		{Data: map[string]any{"_image": map[string]any{"imageUrl": "https://cdn.example/a.png"}}},
	}
	parts := Flatten(raws)
	if len(parts) != 3 {
		t.Fatalf("len(parts) = %d, want 3", len(parts))
	}
	if text, ok := parts[0].(*a2a.TextPart); !ok || text.Text != "Hello" {
		t.Errorf("parts[0] = %+v, want text Hello", parts[0])
	}
}
