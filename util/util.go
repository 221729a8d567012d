package util

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PropertiesMap - Type for event parameter key values.
type PropertiesMap map[string]interface{}

const EventTokenLength = 16

func GetUUID() string {
	return uuid.New().String()
}

// EventIdempotencyToken - Deterministic event id used as client assigned
// dedup key. Same (user, event, timestamp) always yields the same token.
func EventIdempotencyToken(userPseudoID, eventName string, timestamp int64) string {
	uniqueString := fmt.Sprintf("%s-%s-%d", userPseudoID, eventName, timestamp)
	hash := sha256.Sum256([]byte(uniqueString))
	return hex.EncodeToString(hash[:])[:EventTokenLength]
}

// GenerateHashStringForStruct Marshals the passed struct and generates a unique hash string.
func GenerateHashStringForStruct(payload interface{}) (string, error) {
	bytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(bytes)
	return hex.EncodeToString(hash[:]), nil
}

// GetFloatValue - Reads a numeric properties map value which could have
// been unmarshalled as float64, int or numeric string.
func GetFloatValue(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// GetStringValue - Reads a string properties map value, empty for other types.
func GetStringValue(value interface{}) string {
	if v, ok := value.(string); ok {
		return v
	}
	return ""
}

func ContainsStringInSlice(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

// ParseStringList - Splits comma separated config values, trimming
// whitespace and skipping empties.
func ParseStringList(value string) []string {
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		list = append(list, part)
	}
	return list
}
