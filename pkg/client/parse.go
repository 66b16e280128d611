package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/menta2k/vehicle-counter/pkg/types"
)

// ErrUnparseable is returned when a model reply contains no usable object list
var ErrUnparseable = errors.New("unparseable model response")

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)\s//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParseObjectList parses a model reply into an object list. Both
// {"objects":[...]} and a bare [...] array are accepted. An empty list is
// valid; a reply with no JSON at all is an error.
func ParseObjectList(raw string) (*types.ObjectList, error) {
	raw = SanitizeModelJSON(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrUnparseable)
	}

	var result types.ObjectList
	switch raw[0] {
	case '{':
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
	case '[':
		if err := json.Unmarshal([]byte(raw), &result.Objects); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
	default:
		return nil, fmt.Errorf("%w: no JSON found", ErrUnparseable)
	}

	for i := range result.Objects {
		result.Objects[i].Label = strings.ToLower(strings.TrimSpace(result.Objects[i].Label))
	}
	return &result, nil
}

// SanitizeModelJSON removes code fences, comments, and trailing commas from a
// JSON reply and keeps only the outermost object or array.
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...} or [...], whichever starts first
	obj := strings.Index(raw, "{")
	arr := strings.Index(raw, "[")
	open, closer := obj, "}"
	if arr >= 0 && (obj < 0 || arr < obj) {
		open, closer = arr, "]"
	}
	if open >= 0 {
		if end := strings.LastIndex(raw, closer); end > open {
			raw = raw[open : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
