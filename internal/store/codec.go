package store

import (
	"database/sql"
	"encoding/json"
	"strings"
)

// EncodeTags serializes tags for a JSON column. An empty list is stored as NULL.
func EncodeTags(tags []string) (sql.NullString, error) {
	if len(tags) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// DecodeTags reads a JSON tag column back into a plain list. Rows written by
// older tools may hold non-string entries or blanks; those are skipped.
func DecodeTags(raw sql.NullString) []string {
	tags := []string{}
	if !raw.Valid || raw.String == "" {
		return tags
	}

	var values []any
	if err := json.Unmarshal([]byte(raw.String), &values); err != nil {
		return tags
	}
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			tags = append(tags, s)
		}
	}
	return tags
}

// NullableString converts an optional string to a nullable column value.
func NullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// StringPtr converts a nullable column value back to an optional string.
func StringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
