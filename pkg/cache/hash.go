package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Key kinds. Every key built by [DefaultKeyer] starts with one of them.
const (
	KindReport = "report"
	KindRender = "render"
)

// hashKey builds "kind:<hex sha256 of the JSON array of parts>".
//
// Report keys hash [scheme fingerprint, input hash, ReportKeyOpts] and render
// keys hash [report hash, RenderKeyOpts], so editing the scheme, the input or
// any solver or render option yields a new key. A [ScopedKeyer] scope and the
// Redis namespace are prepended, giving keys like
//
//	labeltower:sle16:report:9f86d081884c7d65...
//
// [FileCache] hashes the whole key once more to name its file.
func hashKey(kind string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", kind, hex.EncodeToString(hash[:]))
}

// KindOf returns the kind of a key built by [DefaultKeyer], looking past any
// scope prefix. It returns "" for keys of another layout.
func KindOf(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) < 2 {
		return ""
	}
	switch kind := parts[len(parts)-2]; kind {
	case KindReport, KindRender:
		return kind
	}
	return ""
}

// Hash returns the hex SHA-256 of data. Inputs and reports are identified by
// it in cache keys and stored runs.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
