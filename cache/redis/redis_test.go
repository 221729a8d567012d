package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewKey(t *testing.T) {
	key, err := NewKey("events", "event_seen", "4f2a9c1de08b77aa")
	assert.Nil(t, err)

	cKey, err := key.Key()
	assert.Nil(t, err)
	assert.Equal(t, "events:event_seen:4f2a9c1de08b77aa", cKey)
}

func TestNewKeyValidation(t *testing.T) {
	_, err := NewKey("", "event_seen", "suffix")
	assert.Equal(t, ErrorInvalidTable, err)

	_, err = NewKey("events", "", "suffix")
	assert.Equal(t, ErrorInvalidIndex, err)

	// empty suffix is allowed.
	key, err := NewKey("events", "event_seen", "")
	assert.Nil(t, err)
	cKey, _ := key.Key()
	assert.Equal(t, "events:event_seen:", cKey)
}

func TestNilKeyOperations(t *testing.T) {
	assert.Equal(t, ErrorInvalidKey, Set(nil, "value", 0))
	_, err := Get(nil)
	assert.Equal(t, ErrorInvalidKey, err)
	assert.Equal(t, ErrorInvalidKey, Del(nil))
	_, err = Exists(nil)
	assert.Equal(t, ErrorInvalidKey, err)
	_, err = SetNX(nil, "value", 0)
	assert.Equal(t, ErrorInvalidKey, err)
}
