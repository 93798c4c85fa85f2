package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// tokenRecord is the durable access-token file shape.
type tokenRecord struct {
	SlackUserToken string `json:"slack_user_token"`
}

// LoadToken reads the stored access token. A missing or unparsable record
// yields an empty token, not an error; the token is validated later.
func LoadToken(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var rec tokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return ""
	}
	return rec.SlackUserToken
}

// SaveToken rewrites the access-token record. Called after listing and on
// exit so the token survives across runs.
func SaveToken(path, token string) error {
	data, err := json.Marshal(tokenRecord{SlackUserToken: token})
	if err != nil {
		return fmt.Errorf("marshal token record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token record: %w", err)
	}
	return nil
}
