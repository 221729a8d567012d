package util

import (
	"strings"

	"github.com/mssola/user_agent"

	"github.com/gin-gonic/gin"
)

// SetScope sets scope to the context with a key/value.
func SetScope(c *gin.Context, key string, value interface{}) {
	scopeValue, exists := c.Get("scopes")
	if !exists {
		// Initializes scope with the key and value.
		c.Set("scopes", map[string]interface{}{key: value})
		return
	}

	scopeValue.(map[string]interface{})[key] = value
}

// GetScopeByKey gets specific scope by key from scopes.
func GetScopeByKey(c *gin.Context, key string) interface{} {
	scopeValue, exists := c.Get("scopes")
	if exists {
		return scopeValue.(map[string]interface{})[key]
	}
	return nil
}

func GetScopeByKeyAsString(c *gin.Context, key string) string {
	iface := GetScopeByKey(c, key)
	if iface == nil {
		return ""
	}
	return iface.(string)
}

// IsPinggdomBot - Check whether it is pingdom bot or not
func IsPingdomBot(userAgent string) bool {
	return strings.Contains(strings.ToLower(userAgent), "pingdom")
}

// IsLighthouse - Check whether it is lighthouse useragent or not.
func IsLighthouse(userAgent string) bool {
	return strings.Contains(strings.ToLower(userAgent), "lighthouse")
}

// IsBotUserAgent - Check request user agent is bot or not.
func IsBotUserAgent(userAgent string) bool {
	if userAgent == "" {
		return false
	}

	if IsPingdomBot(userAgent) || IsLighthouse(userAgent) {
		return true
	}

	return user_agent.New(userAgent).Bot()
}
