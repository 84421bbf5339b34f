package common

const (
	// AuthorizationHeaderName carries the bearer access token on HTTP requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "

	// SharePasswordHeaderName carries the optional share-link password on
	// anonymous GET requests.
	SharePasswordHeaderName = "X-Share-Password"
)
