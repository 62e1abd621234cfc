package s3store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds S3 connection settings shared by all profiles.
type Config struct {
	Region       string                   `mapstructure:"region" yaml:"region"`
	Endpoint     string                   `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	UsePathStyle bool                     `mapstructure:"use_path_style" yaml:"use_path_style"`
	Profiles     map[string]ProfileConfig `mapstructure:"profiles" yaml:"profiles,omitempty"`
}

// ProfileConfig overrides connection settings for one named profile.
// Profiles without static keys fall back to the AWS shared config profile of
// the same name.
type ProfileConfig struct {
	Region       string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint     string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	AccessKey    string `mapstructure:"access_key" yaml:"access_key,omitempty"`
	SecretKey    string `mapstructure:"secret_key" yaml:"secret_key,omitempty"`
	UsePathStyle *bool  `mapstructure:"use_path_style" yaml:"use_path_style,omitempty"`
}

// NewClientFactory returns a ClientFactory creating *s3.Client values from cfg.
func NewClientFactory(cfg Config) ClientFactory {
	return func(ctx context.Context, profile string) (API, error) {
		region := cfg.Region
		endpoint := cfg.Endpoint
		usePathStyle := cfg.UsePathStyle

		var opts []func(*config.LoadOptions) error

		if p, ok := cfg.Profiles[profile]; ok && profile != "" {
			if p.Region != "" {
				region = p.Region
			}
			if p.Endpoint != "" {
				endpoint = p.Endpoint
			}
			if p.UsePathStyle != nil {
				usePathStyle = *p.UsePathStyle
			}
			if p.AccessKey != "" {
				opts = append(opts, config.WithCredentialsProvider(
					credentials.NewStaticCredentialsProvider(p.AccessKey, p.SecretKey, ""),
				))
			} else {
				opts = append(opts, config.WithSharedConfigProfile(profile))
			}
		} else if profile != "" {
			opts = append(opts, config.WithSharedConfigProfile(profile))
		}

		if region != "" {
			opts = append(opts, config.WithRegion(region))
		}

		awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}

		return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
			o.UsePathStyle = usePathStyle
		}), nil
	}
}
