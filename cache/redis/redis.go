package redis

import (
	"errors"
	"fmt"

	"github.com/gomodule/redigo/redis"

	C "attribution/config"
)

type Key struct {
	// Table - Grouping by the backing table, i.e events.
	Table string
	// Index - Named index within the table, i.e event_seen.
	Index string
	// Suffix - optional
	Suffix string
}

var (
	ErrorInvalidTable = errors.New("invalid key table")
	ErrorInvalidIndex = errors.New("invalid key index")
	ErrorInvalidKey   = errors.New("invalid redis cache key")
)

func NewKey(table string, index string, suffix string) (*Key, error) {
	if table == "" {
		return nil, ErrorInvalidTable
	}

	if index == "" {
		return nil, ErrorInvalidIndex
	}

	return &Key{Table: table, Index: index, Suffix: suffix}, nil
}

func (key *Key) Key() (string, error) {
	if key.Table == "" {
		return "", ErrorInvalidTable
	}

	if key.Index == "" {
		return "", ErrorInvalidIndex
	}

	// key: i.e, events:event_seen:4f2a9c1de08b77aa
	return fmt.Sprintf("%s:%s:%s", key.Table, key.Index, key.Suffix), nil
}

func Set(key *Key, value string, expiryInSecs float64) error {
	if key == nil {
		return ErrorInvalidKey
	}

	if value == "" {
		return errors.New("empty cache key value")
	}

	cKey, err := key.Key()
	if err != nil {
		return err
	}

	redisConn := C.GetCacheRedisConnection()
	defer redisConn.Close()

	if expiryInSecs == 0 {
		_, err = redisConn.Do("SET", cKey, value)
	} else {
		_, err = redisConn.Do("SET", cKey, value, "EX", expiryInSecs)
	}

	return err
}

// SetNX - Sets the key only if absent. Returns true when this call
// created the key, false when it already existed.
func SetNX(key *Key, value string, expiryInSecs float64) (bool, error) {
	if key == nil {
		return false, ErrorInvalidKey
	}

	if value == "" {
		return false, errors.New("empty cache key value")
	}

	cKey, err := key.Key()
	if err != nil {
		return false, err
	}

	redisConn := C.GetCacheRedisConnection()
	defer redisConn.Close()

	var reply interface{}
	if expiryInSecs == 0 {
		reply, err = redisConn.Do("SET", cKey, value, "NX")
	} else {
		reply, err = redisConn.Do("SET", cKey, value, "NX", "EX", expiryInSecs)
	}
	if err != nil {
		return false, err
	}

	// SET NX replies OK on create, nil when the key exists.
	return reply != nil, nil
}

func Get(key *Key) (string, error) {
	if key == nil {
		return "", ErrorInvalidKey
	}

	cKey, err := key.Key()
	if err != nil {
		return "", err
	}

	redisConn := C.GetCacheRedisConnection()
	defer redisConn.Close()

	return redis.String(redisConn.Do("GET", cKey))
}

func Del(key *Key) error {
	if key == nil {
		return ErrorInvalidKey
	}

	cKey, err := key.Key()
	if err != nil {
		return err
	}

	redisConn := C.GetCacheRedisConnection()
	defer redisConn.Close()

	_, err = redisConn.Do("DEL", cKey)
	return err
}

// Exists Checks if a key exists in Redis.
func Exists(key *Key) (bool, error) {
	if key == nil {
		return false, ErrorInvalidKey
	}

	cKey, err := key.Key()
	if err != nil {
		return false, err
	}

	redisConn := C.GetCacheRedisConnection()
	defer redisConn.Close()

	count, err := redisConn.Do("EXISTS", cKey)
	if err != nil {
		return false, err
	}
	return count.(int64) == 1, nil
}
