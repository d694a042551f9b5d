// Package agenterr defines the error-kind taxonomy shared across the agent.
//
// Every component wraps failures in one of these sentinels with
// fmt.Errorf("...: %w", ...) so that callers can classify an error with
// errors.Is/Kind without string-matching messages.
package agenterr

import "errors"

var (
	// ErrConfig covers a missing or invalid required environment variable.
	// Fatal at startup; never raised once the orchestrator is running.
	ErrConfig = errors.New("agenterr: invalid config")
	// ErrBadKeystore covers malformed keystore JSON, wrong KDF params, or a MAC mismatch.
	ErrBadKeystore = errors.New("agenterr: bad keystore")
	// ErrBadSignature covers a signature that fails to recover or recovers the wrong address.
	ErrBadSignature = errors.New("agenterr: bad signature")
	// ErrBadCurvePoint covers a public key or signature that does not lie on the curve.
	ErrBadCurvePoint = errors.New("agenterr: bad curve point")
	// ErrNotFound covers a trade store lookup for an unknown betId.
	ErrNotFound = errors.New("agenterr: not found")
	// ErrValidation covers missing required fields or a commitment/root mismatch.
	ErrValidation = errors.New("agenterr: validation failed")
	// ErrExpired covers a message whose expiry has already passed.
	ErrExpired = errors.New("agenterr: expired")
	// ErrRateLimited covers an inbound request over the per-IP rate limit.
	ErrRateLimited = errors.New("agenterr: rate limited")
	// ErrResourcePressure covers admission rejections under memory pressure or at the active-bet cap.
	ErrResourcePressure = errors.New("agenterr: resource pressure")
	// ErrTransport covers peer unreachable, timeout, or 5xx from a peer.
	ErrTransport = errors.New("agenterr: transport failure")
	// ErrChain covers RPC error, revert, or nonce collision from the settlement chain.
	ErrChain = errors.New("agenterr: chain failure")
	// ErrStorage covers local disk IO failure.
	ErrStorage = errors.New("agenterr: storage failure")
)

// Kind classifies err against the sentinels above, returning a short string
// usable as a log field or metric label. Unrecognized errors classify as "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrBadKeystore), errors.Is(err, ErrBadSignature), errors.Is(err, ErrBadCurvePoint):
		return "crypto"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrExpired):
		return "validation"
	case errors.Is(err, ErrRateLimited):
		return "rate_limit"
	case errors.Is(err, ErrResourcePressure):
		return "resource"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrChain):
		return "chain"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "internal"
	}
}

// HTTPStatus maps an error kind to the HTTP status the P2P server should return.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case "validation":
		return 400
	case "crypto":
		return 401
	case "not_found":
		return 404
	case "rate_limit":
		return 429
	case "resource":
		return 503
	case "":
		return 200
	default:
		return 500
	}
}
