package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// raw credential on inbound requests.
const AccessTokenHeaderName = "access_token"

// AuthorizationHeaderName is accepted as a fallback carrier in the
// "Bearer <token>" form.
const AuthorizationHeaderName = "authorization"

// BearerPrefix is the scheme prefix stripped from AuthorizationHeaderName values.
const BearerPrefix = "Bearer "
