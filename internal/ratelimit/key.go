package ratelimit

// KeyNamespace prefixes every key the limiter writes to the window store.
const KeyNamespace = "rate_limiter"

const keySeparator = ":"

// Key returns the store key for an endpoint and client.
//
// Endpoints never contain the separator (see NewPolicy), so the first two
// separators are always delimiters and client identities such as IPv6
// addresses cannot collide with another endpoint's keys.
func Key(endpoint, client string) string {
	return KeyNamespace + keySeparator + endpoint + keySeparator + client
}
