package auth

import "net/url"

// TokenFromQuery extracts the bearer token from the upgrade request's query
// string. Browsers cannot set headers on WebSocket upgrades, so the token
// rides in `?token=`.
func TokenFromQuery(q url.Values) (string, error) {
	if token := q.Get("token"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}
