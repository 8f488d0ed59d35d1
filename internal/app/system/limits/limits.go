// internal/app/system/limits/limits.go
package limits

// Request and page size limits for the JSON API.
const (
	// MaxJSONBody is the largest request body any handler will decode.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxAuditPage is the page size of the admin audit listing.
	MaxAuditPage = 50
)
