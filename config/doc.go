// Package config provides configuration loading and validation for s3proxy.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (S3PROXY_ prefix), optionally seeded from a .env file
//  4. CLI flags
//
// # Usage
//
//	if err := config.LoadEnvFile(".env", false); err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with S3PROXY_ prefix:
//   - server.port → S3PROXY_SERVER_PORT
//   - storage.s3.endpoint → S3PROXY_STORAGE_S3_ENDPOINT
//   - policy.disallow → S3PROXY_POLICY_DISALLOW (comma- or space-separated, or a JSON array)
//
// Named S3 profiles can only be declared in a configuration file.
//
// # Configuration Structure
//
// The Config struct contains:
//   - Name, Env: application name and environment (development/production)
//   - Server: port, external path prefix and timeouts
//   - Policy: accept, also_allow and disallow MIME lists, extension overrides
//   - Storage: backend (s3/filesystem), filesystem root, S3 region, endpoint and profiles
//   - Auth: header carrying the upstream user, and whether it is required
//   - CORS: cross-origin resource sharing settings
//   - Metrics: Prometheus exposition toggle and path
//   - Log: logging level
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - Env must be development or production
//   - Backend must be s3 or filesystem; filesystem requires a path
//   - Path prefix and metrics path must start with /
//   - Log level must be debug, info, warn, or error
package config
