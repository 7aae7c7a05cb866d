// internal/app/system/limits/limits.go
package limits

// Request body size limits. Bodies beyond these are rejected before they
// reach a handler's validation.
const (
	// MaxJSONBodySize is the largest JSON body accepted by any endpoint.
	MaxJSONBodySize = 1 << 20 // 1 MB

	// MaxFormBodySize is the largest url-encoded form body. The public
	// request form carries at most a few kilobytes of text.
	MaxFormBodySize = 256 << 10 // 256 KB
)
