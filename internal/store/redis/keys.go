package redis

const (
	// KeyPrefixSession is the prefix for session keys (by browser key)
	KeyPrefixSession = "marks:session:"
	// KeyPrefixState is the prefix for pending OAuth state keys
	KeyPrefixState = "marks:oauth_state:"
	// KeySessionIndex is the sorted set of browser keys scored by token expiry
	KeySessionIndex = "marks:sessions:by_expiry"
	// ChannelPrefixAuth is the pub/sub prefix for auth-state events
	ChannelPrefixAuth = "marks:auth:"
)

// SessionKey returns the Redis key for a browser's session
func SessionKey(browserKey string) string {
	return KeyPrefixSession + browserKey
}

// StateKey returns the Redis key for a pending OAuth state
func StateKey(state string) string {
	return KeyPrefixState + state
}

// SessionIndexKey returns the key of the expiry index
func SessionIndexKey() string {
	return KeySessionIndex
}

// AuthChannel returns the pub/sub channel for a browser's auth events
func AuthChannel(browserKey string) string {
	return ChannelPrefixAuth + browserKey
}
