// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package normalizer translates a single backend output record into the
// A2A part shapes the gateway's event bus carries, and flattens a batch of
// records into one ordered part list for the non-streaming path.
package normalizer

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/sngueneko/cognigy-a2a-gateway/internal/a2a"
)

// RawOutput is one backend output record, already unwrapped of its
// transport envelope: an optional text string and an optional structured
// data map.
type RawOutput struct {
	Text    string
	HasText bool
	Data    map[string]any
}

// Kind discriminates the two Output variants.
type Kind string

const (
	KindStatusMessage Kind = "status-message"
	KindArtifact      Kind = "artifact"
)

// Output is a Normalized Output: a tagged union of a conversational
// status-message (text part, optional data part) and a binary artifact
// (file part, text-fallback part, plus the pre-extracted media fields).
type Output struct {
	Kind     Kind
	Parts    []a2a.Part
	MIMEType string
	Name     string
	FileURL  string
}

var mediaKeys = []string{"_image", "_audio", "_video"}

var structuredKeys = map[string]string{
	"_quickReplies":  "quick_replies",
	"_gallery":       "carousel",
	"_buttons":       "buttons",
	"_list":          "list",
	"_adaptiveCard":  "AdaptiveCard",
}

// structuredOrder fixes the priority order §4.1 requires when more than one
// structured key is present on the same record (should not normally
// happen, but the rule must still be deterministic).
var structuredOrder = []string{"_quickReplies", "_gallery", "_buttons", "_list", "_adaptiveCard"}

// Normalize implements the §4.1 classification algorithm: the first
// matching rule, in fixed priority order, wins.
func Normalize(raw RawOutput) (Output, error) {
	if kind, url := firstMediaKey(raw.Data); kind != "" {
		return normalizeArtifact(kind, url)
	}
	for _, key := range structuredOrder {
		payload, ok := raw.Data[key]
		if !ok {
			continue
		}
		return normalizeStructured(raw, key, payload)
	}
	if len(raw.Data) > 0 {
		return normalizeCustom(raw)
	}
	return normalizeText(raw), nil
}

func firstMediaKey(data map[string]any) (kind, url string) {
	for _, key := range mediaKeys {
		v, ok := data[key]
		if !ok {
			continue
		}
		m, _ := v.(map[string]any)
		switch key {
		case "_image":
			return "image", stringField(m, "imageUrl")
		case "_audio":
			return "audio", stringField(m, "audioUrl")
		case "_video":
			return "video", stringField(m, "videoUrl")
		}
	}
	return "", ""
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func normalizeArtifact(kind, url string) (Output, error) {
	mime, name := inferMedia(kind, url)
	fallback := fmt.Sprintf("[%s: %s]", strings.ToUpper(kind[:1])+kind[1:], url)
	return Output{
		Kind:     KindArtifact,
		MIMEType: mime,
		Name:     name,
		FileURL:  url,
		Parts: []a2a.Part{
			a2a.NewFilePart(url, mime, name),
			a2a.NewTextPart(fallback),
		},
	}, nil
}

func normalizeStructured(raw RawOutput, key string, payload any) (Output, error) {
	text, err := render(key, payload)
	if err != nil {
		return Output{}, fmt.Errorf("render %s: %w", key, err)
	}
	if key != "_gallery" && raw.HasText && raw.Text != "" {
		text = raw.Text + "\n" + text
	}
	return Output{
		Kind: KindStatusMessage,
		Parts: []a2a.Part{
			a2a.NewTextPart(text),
			a2a.NewDataPart(structuredKeys[key], payload),
		},
	}, nil
}

func normalizeCustom(raw RawOutput) (Output, error) {
	text := raw.Text
	if !raw.HasText || text == "" {
		text, _ = raw.Data["_fallbackText"].(string)
	}
	remaining := map[string]any{}
	for k, v := range raw.Data {
		if k == "_fallbackText" || k == "_cognigy" {
			continue
		}
		remaining[k] = v
	}
	parts := []a2a.Part{a2a.NewTextPart(text)}
	if len(remaining) > 0 {
		parts = append(parts, a2a.NewDataPart("cognigy/data", remaining))
	}
	return Output{Kind: KindStatusMessage, Parts: parts}, nil
}

func normalizeText(raw RawOutput) Output {
	text := raw.Text
	if strings.TrimSpace(text) == "" {
		if text != "" {
			slog.Warn("normalizer: whitespace-only output text")
		}
		text = ""
	}
	return Output{Kind: KindStatusMessage, Parts: []a2a.Part{a2a.NewTextPart(text)}}
}

// MIME inference, §4.1 table. Extensions are matched case-insensitively
// against the URL path with any query string stripped.
var imageMIME = map[string]string{
	"jpg": "image/jpeg", "jpeg": "image/jpeg", "png": "image/png",
	"gif": "image/gif", "webp": "image/webp", "svg": "image/svg+xml",
	"bmp": "image/bmp", "ico": "image/x-icon",
}

var audioMIME = map[string]string{
	"mp3": "audio/mpeg", "ogg": "audio/ogg", "wav": "audio/wav",
	"m4a": "audio/mp4", "aac": "audio/aac", "flac": "audio/flac", "webm": "audio/webm",
}

var videoMIME = map[string]string{
	"mp4": "video/mp4", "m4v": "video/mp4", "webm": "video/webm", "ogg": "video/ogg",
	"avi": "video/x-msvideo", "mov": "video/quicktime", "mkv": "video/x-matroska",
}

var defaultMIME = map[string]string{"image": "image/jpeg", "audio": "audio/mpeg", "video": "video/mp4"}

// inferMedia extracts the filename and MIME type for a media URL, per the
// kind's inference table, falling back to the kind's default MIME and a
// literal kind name when the extension is unknown or absent.
func inferMedia(kind, url string) (mime, name string) {
	stripped := stripQuery(url)
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(stripped), "."))
	table := map[string]map[string]string{"image": imageMIME, "audio": audioMIME, "video": videoMIME}[kind]
	if m, ok := table[ext]; ok {
		mime = m
	} else {
		mime = defaultMIME[kind]
	}
	name = path.Base(stripped)
	if name == "" || name == "." || name == "/" {
		name = kind
	}
	return mime, name
}

func stripQuery(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

// Flatten maps a batch of Raw Backend Outputs into one flat ordered part
// list, used by the non-streaming path to pack every output into a single
// message. An output that fails to normalize is logged and skipped.
func Flatten(raws []RawOutput) []a2a.Part {
	if len(raws) == 0 {
		return []a2a.Part{a2a.NewTextPart("")}
	}
	var parts []a2a.Part
	for i, raw := range raws {
		out, err := Normalize(raw)
		if err != nil {
			slog.Warn("normalizer: skipping output during flatten", slog.Int("index", i), slog.Any("error", err))
			continue
		}
		parts = append(parts, out.Parts...)
	}
	if len(parts) == 0 {
		return []a2a.Part{a2a.NewTextPart("")}
	}
	return parts
}
