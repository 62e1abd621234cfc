// Package http exposes the s3proxy object pipeline over HTTP.
//
// # Routes
//
//	GET /                               internal metadata
//	GET /metrics                        Prometheus metrics (when a recorder is configured)
//	GET {prefix}/                       external metadata
//	GET {prefix}/s3/{bucket}/{key...}   object contents
//
// The bucket segment may carry a credential profile as "profile@bucket". The
// key is everything after the bucket and may contain slashes; percent-encoded
// characters are decoded exactly once.
//
// # Responses
//
// Object bodies are fully buffered and sent with an explicit Content-Length.
// Every non-200 response carries a JSON body of the form:
//
//	{"message": "Not found: s3://bucket/key"}
//
// Status codes:
//
//	200  inline or attachment content
//	400  empty bucket or key, malformed profile
//	401  user header missing while RequireUser is set
//	403  content type refused by the disallow list
//	404  object or bucket does not exist
//	502  storage backend failure (credentials, network, access denied)
//
// # Usage
//
//	policy := s3proxy.NewPolicy(s3proxy.DefaultPolicyConfig(), s3proxy.DefaultMimeTable())
//	service, err := s3proxy.NewProxyService(policy, store, s3proxy.ServiceConfig{})
//	if err != nil {
//	    return err
//	}
//
//	handler := http.NewHandler(&http.HandlerConfig{PathPrefix: "/s3proxy"}, service)
//	http.ListenAndServe(":8080", handler.Router())
//
// # Authentication
//
// The server does not authenticate. It expects to sit behind a proxy that
// does, and reads the resulting user from HandlerConfig.UserHeader for
// logging. UserMiddleware can refuse requests that arrive without it.
package http
