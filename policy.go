package s3proxy

import (
	"slices"
	"strings"
)

// DefaultAcceptMimeTypes lists the types browsers can display directly.
var DefaultAcceptMimeTypes = []string{
	"text/csv",
	"image/gif",
	"text/html",
	"image/jpeg",
	"text/javascript",
	"application/json",
	"audio/mpeg",
	"video/mp4",
	"video/mpeg",
	"audio/ogg",
	"video/ogg",
	"application/ogg",
	"image/png",
	"application/pdf",
	"image/svg+xml",
	"image/tiff",
	"text/plain",
	"audio/wav",
	"audio/webm",
	"video/webm",
	"image/webp",
}

// PolicyConfig holds the three configured MIME type lists.
type PolicyConfig struct {
	Accept    []string `mapstructure:"accept" yaml:"accept"`
	AlsoAllow []string `mapstructure:"also_allow" yaml:"also_allow"`
	Disallow  []string `mapstructure:"disallow" yaml:"disallow"`
}

// DefaultPolicyConfig returns the default accept list with empty also-allow
// and disallow lists.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Accept:    slices.Clone(DefaultAcceptMimeTypes),
		AlsoAllow: []string{},
		Disallow:  []string{},
	}
}

// Policy classifies object keys. It is built once at startup and shared
// read-only between requests.
type Policy struct {
	table    MimeTable
	allow    map[string]struct{}
	disallow map[string]struct{}
}

// NewPolicy builds a Policy from cfg. Type names are compared case-insensitively.
func NewPolicy(cfg PolicyConfig, table MimeTable) *Policy {
	p := &Policy{
		table:    table,
		allow:    make(map[string]struct{}, len(cfg.Accept)+len(cfg.AlsoAllow)),
		disallow: make(map[string]struct{}, len(cfg.Disallow)),
	}

	for _, t := range cfg.Accept {
		addType(p.allow, t)
	}
	for _, t := range cfg.AlsoAllow {
		addType(p.allow, t)
	}
	for _, t := range cfg.Disallow {
		addType(p.disallow, t)
	}

	return p
}

func addType(set map[string]struct{}, mimeType string) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType != "" {
		set[mimeType] = struct{}{}
	}
}

// Classify decides how the object at key is served:
//  1. inferred type in disallow: Reject
//  2. inferred type in accept or also-allow: Inline
//  3. anything else: Attachment
func (p *Policy) Classify(key string) Decision {
	mimeType := p.table.Guess(key)

	if _, denied := p.disallow[mimeType]; denied {
		return Reject(mimeType)
	}

	if _, allowed := p.allow[mimeType]; allowed {
		return Inline(mimeType)
	}

	return Attachment(mimeType)
}

// InlineTypes returns the effective inline set, (accept ∪ also-allow) minus
// disallow, sorted.
func (p *Policy) InlineTypes() []string {
	out := make([]string, 0, len(p.allow))
	for t := range p.allow {
		if _, denied := p.disallow[t]; !denied {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}
