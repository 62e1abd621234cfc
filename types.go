package s3proxy

import "fmt"

// SchemeS3 is the only URI scheme produced by Resolve.
const SchemeS3 = "s3"

// ObjectRequest holds the bucket and key exactly as taken from the request path.
type ObjectRequest struct {
	Bucket string
	Key    string
}

// Location identifies an object in the storage backend.
// Profile is empty when the request did not select one.
type Location struct {
	Scheme  string
	Profile string
	Bucket  string
	Key     string
}

// URI renders the location as s3://[profile@]bucket/key.
func (l Location) URI() string {
	if l.Profile != "" {
		return fmt.Sprintf("%s://%s@%s/%s", l.Scheme, l.Profile, l.Bucket, l.Key)
	}
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Key)
}

// FetchResult is the outcome of reading an object: either Found with the full
// object bytes, or not found.
type FetchResult struct {
	Found bool
	Data  []byte
}

// Found returns a FetchResult holding data.
func Found(data []byte) FetchResult {
	return FetchResult{Found: true, Data: data}
}

// NotFound is the FetchResult for a missing object.
var NotFound = FetchResult{}

// Disposition says how a response body is presented to the browser.
type Disposition string

// Dispositions returned by Policy.Classify.
const (
	// DispositionInline serves the body for display in the browser.
	DispositionInline     Disposition = "inline"
	// DispositionAttachment serves the body as a download.
	DispositionAttachment Disposition = "attachment"
	// DispositionReject refuses to serve the body at all.
	DispositionReject     Disposition = "reject"
)

// Decision is the content policy verdict for a key. MimeType is always set,
// including for rejections, so callers can report which type was refused.
type Decision struct {
	Disposition Disposition
	MimeType    string
}

// Inline returns a decision to display mimeType in the browser.
func Inline(mimeType string) Decision {
	return Decision{Disposition: DispositionInline, MimeType: mimeType}
}

// Attachment returns a decision to download mimeType.
func Attachment(mimeType string) Decision {
	return Decision{Disposition: DispositionAttachment, MimeType: mimeType}
}

// Reject returns a decision refusing to serve mimeType.
func Reject(mimeType string) Decision {
	return Decision{Disposition: DispositionReject, MimeType: mimeType}
}

// IsRejected reports whether the object must not be served.
func (d Decision) IsRejected() bool {
	return d.Disposition == DispositionReject
}

// String renders the decision as disposition(mimeType), e.g. "reject(text/html)".
func (d Decision) String() string {
	return fmt.Sprintf("%s(%s)", d.Disposition, d.MimeType)
}

// Result is everything the HTTP layer needs to answer an object request.
// Fetch is NotFound and untouched when the decision rejected the object.
type Result struct {
	Location Location
	Decision Decision
	Fetch    FetchResult
}
