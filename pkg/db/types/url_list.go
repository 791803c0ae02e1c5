package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// MaxURLListItems caps how many media URLs a listing may carry.
const MaxURLListItems = 8

const maxURLLength = 400

// URLList is the canonical ordered list of media URLs. Every value that enters
// through Scan, UnmarshalJSON or NormalizeURLs is trimmed, restricted to
// http(s), de-duplicated in order and capped at MaxURLListItems.
type URLList []string

// NormalizeURLs applies the URLList rules to raw input.
func NormalizeURLs(raw []string) URLList {
	out := make(URLList, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, candidate := range raw {
		candidate = strings.TrimSpace(candidate)
		if !isHTTPURL(candidate) {
			continue
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
		if len(out) == MaxURLListItems {
			break
		}
	}
	return out
}

// First returns the first URL or "".
func (l URLList) First() string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}

func (l *URLList) Scan(src any) error {
	if src == nil {
		*l = URLList{}
		return nil
	}
	switch v := src.(type) {
	case string:
		return l.parse(v)
	case []byte:
		return l.parse(string(v))
	default:
		return fmt.Errorf("URLList: unsupported Scan type %T", src)
	}
}

// Value stores the list as a JSON array.
func (l URLList) Value() (driver.Value, error) {
	normalized := NormalizeURLs(l)
	b, err := json.Marshal([]string(normalized))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l URLList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// UnmarshalJSON accepts an array of strings, a single URL string, or a string
// holding a JSON-encoded array.
func (l *URLList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*l = URLList{}
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("URLList: %w", err)
		}
		*l = NormalizeURLs(items)
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("URLList: %w", err)
	}
	return l.parse(single)
}

func (l *URLList) parse(s string) error {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || s == "{}" || s == "[]":
		*l = URLList{}
		return nil
	case strings.HasPrefix(s, "["):
		var items []string
		if err := json.Unmarshal([]byte(s), &items); err != nil {
			return fmt.Errorf("URLList: parse json array: %w", err)
		}
		*l = NormalizeURLs(items)
		return nil
	case strings.HasPrefix(s, `"`):
		var inner string
		if err := json.Unmarshal([]byte(s), &inner); err != nil {
			return fmt.Errorf("URLList: parse json string: %w", err)
		}
		return l.parse(inner)
	case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
		body := strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
		parts := strings.Split(body, ",")
		for i := range parts {
			parts[i] = strings.Trim(strings.TrimSpace(parts[i]), `"`)
		}
		*l = NormalizeURLs(parts)
		return nil
	default:
		*l = NormalizeURLs(strings.Split(s, ","))
		return nil
	}
}

// IsHTTPURL reports whether s is an absolute http(s) URL within the length cap.
func IsHTTPURL(s string) bool {
	return isHTTPURL(strings.TrimSpace(s))
}

func isHTTPURL(s string) bool {
	if s == "" || len(s) > maxURLLength {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}
