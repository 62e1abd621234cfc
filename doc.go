// Package s3proxy provides the object retrieval and content-type policy engine
// behind an HTTP gateway for S3-compatible object storage.
//
// A request names a bucket and a key. The bucket segment may carry a profile
// selector (profile@bucket) choosing which set of storage credentials to use.
// Before any bytes leave the gateway the key's MIME type is classified against
// a configured policy, deciding whether the object is rendered inline,
// forced into a download, or rejected outright.
//
// # Key Components
//
//   - Resolve: builds a Location (s3://[profile@]bucket/key) from request parameters
//   - MimeTable: static extension-to-MIME mapping, overridable for tests and config
//   - Policy: accept/also-allow/disallow lists producing a Decision per key
//   - ObjectReader: interface for storage backends (s3store, filesystem)
//   - Fetcher: turns reader errors into an explicit Found/NotFound result
//   - ProxyService: orchestrates resolve, classify and fetch for one request
//
// # Decision Precedence
//
// Disallow always wins. Types in accept or also-allow are served inline.
// Everything else, including application/octet-stream, is served as an
// attachment. Unlisted types are never rejected.
//
// # Example Usage
//
//	policy := s3proxy.NewPolicy(s3proxy.DefaultPolicyConfig(), s3proxy.DefaultMimeTable())
//	service, err := s3proxy.NewProxyService(policy, reader, s3proxy.ServiceConfig{})
//	if err != nil {
//	    return err
//	}
//
//	result, err := service.Get(ctx, s3proxy.ObjectRequest{Bucket: "prod@data", Key: "a/b.pdf"})
//
// See the http package for the REST surface and the s3store and filesystem
// packages for reader implementations.
package s3proxy
