package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

const (
	KeyBucketName     = "BUCKET_NAME"
	KeyCertificateArn = "CERTIFICATE_ARN"
	KeyHostedZoneId   = "HOSTED_ZONE_ID"
	KeyHostedZoneName = "HOSTED_ZONE_NAME"
	KeySubdomain      = "SUBDOMAIN"
	KeyDomainName     = "DOMAIN_NAME"
	KeyDeployAccount  = "CDK_DEPLOY_ACCOUNT"
	KeyDefaultAccount = "CDK_DEFAULT_ACCOUNT"
	KeyDeployRegion   = "CDK_DEPLOY_REGION"
	KeyDefaultRegion  = "CDK_DEFAULT_REGION"
	KeyStackName      = "STACK_NAME"
	KeyProjectTag     = "PROJECT_TAG"
)

const (
	DefaultStackName  = "WeirdSheepLabsCdnStack"
	DefaultProjectTag = "Weird Sheep Labs CDN"
)

// CloudFront only accepts ACM certificates issued in us-east-1.
const certificateRegion = "us-east-1"

var (
	ErrMissingKey   = errors.New("missing required configuration key")
	ErrInvalidValue = errors.New("invalid configuration value")

	bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)
	accountPattern    = regexp.MustCompile(`^[0-9]{12}$`)
	labelPattern      = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

	// CDK context keys that do not follow the lower-cased env key convention.
	contextKeys = map[string]string{
		KeyDeployAccount:  "account_id",
		KeyDefaultAccount: "account_id",
		KeyDeployRegion:   "region",
		KeyDefaultRegion:  "region",
	}
)

// DomainStrategy selects how the served domain name is derived.
type DomainStrategy int

const (
	// StrategySubdomain joins SUBDOMAIN and HOSTED_ZONE_NAME.
	StrategySubdomain DomainStrategy = iota
	// StrategyFullDomain uses DOMAIN_NAME verbatim.
	StrategyFullDomain
)

func (s DomainStrategy) String() string {
	switch s {
	case StrategySubdomain:
		return "subdomain"
	case StrategyFullDomain:
		return "full-domain"
	default:
		return fmt.Sprintf("DomainStrategy(%d)", int(s))
	}
}

// MissingKeyError reports a required key that is absent or empty.
type MissingKeyError struct {
	Key          string
	Alternatives []string
}

func (e *MissingKeyError) Error() string {
	if len(e.Alternatives) == 0 {
		return fmt.Sprintf("config: missing required key %s", e.Key)
	}
	return fmt.Sprintf("config: missing required key %s (or %s)", e.Key, strings.Join(e.Alternatives, ", "))
}

func (e *MissingKeyError) Unwrap() error { return ErrMissingKey }

// InvalidValueError reports a key whose value cannot produce a consistent topology.
type InvalidValueError struct {
	Key    string
	Value  string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("config: invalid %s %q: %s", e.Key, e.Value, e.Reason)
}

func (e *InvalidValueError) Unwrap() error { return ErrInvalidValue }

// Config is the single input of the CDN stack. Derived values are filled in by
// Validate and stay fixed afterwards.
type Config struct {
	BucketName     string
	CertificateArn string
	HostedZoneId   string
	HostedZoneName string
	Subdomain      string
	DomainName     string
	Account        string
	Region         string
	StackName      string
	ProjectTag     string

	validated bool
	strategy  DomainStrategy
	fqdn      string
	partition string
}

// Lookup returns the value stored under key.
type Lookup func(key string) (string, bool)

// EnvLookup reads process environment variables.
func EnvLookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

func MapLookup(values map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

// ChainLookup returns the first non-empty value found across lookups.
func ChainLookup(lookups ...Lookup) Lookup {
	return func(key string) (string, bool) {
		for _, lookup := range lookups {
			if lookup == nil {
				continue
			}
			if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
				return v, true
			}
		}
		return "", false
	}
}

// ContextKey maps an environment key to the CDK context key that overrides it.
func ContextKey(key string) string {
	if k, ok := contextKeys[key]; ok {
		return k
	}
	return strings.ToLower(key)
}

// Load reads every key from lookup and validates the result.
func Load(lookup Lookup) (*Config, error) {
	if lookup == nil {
		lookup = EnvLookup
	}

	get := func(keys ...string) string {
		for _, key := range keys {
			if v, ok := lookup(key); ok {
				if v = strings.TrimSpace(v); v != "" {
					return v
				}
			}
		}
		return ""
	}

	cfg := &Config{
		BucketName:     get(KeyBucketName),
		CertificateArn: get(KeyCertificateArn),
		HostedZoneId:   get(KeyHostedZoneId),
		HostedZoneName: get(KeyHostedZoneName),
		Subdomain:      get(KeySubdomain),
		DomainName:     get(KeyDomainName),
		Account:        get(KeyDeployAccount, KeyDefaultAccount),
		Region:         get(KeyDeployRegion, KeyDefaultRegion),
		StackName:      get(KeyStackName),
		ProjectTag:     get(KeyProjectTag),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks completeness, then values, and precomputes the FQDN.
// Every problem found in a phase is returned, joined.
func (c *Config) Validate() error {
	c.validated = false
	c.strategy, c.fqdn, c.partition = StrategySubdomain, "", ""
	c.normalize()

	if err := c.checkComplete(); err != nil {
		return err
	}
	if err := c.checkValues(); err != nil {
		return err
	}

	c.validated = true
	return nil
}

func (c *Config) normalize() {
	c.BucketName = strings.TrimSpace(c.BucketName)
	c.CertificateArn = strings.TrimSpace(c.CertificateArn)
	c.HostedZoneId = strings.TrimSpace(c.HostedZoneId)
	// Record names are matched against the zone name case-sensitively.
	c.HostedZoneName = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(c.HostedZoneName), "."))
	c.Subdomain = strings.ToLower(strings.TrimSpace(c.Subdomain))
	c.DomainName = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(c.DomainName), "."))
	c.Account = strings.TrimSpace(c.Account)
	c.Region = strings.TrimSpace(c.Region)

	if c.StackName = strings.TrimSpace(c.StackName); c.StackName == "" {
		c.StackName = DefaultStackName
	}
	if c.ProjectTag = strings.TrimSpace(c.ProjectTag); c.ProjectTag == "" {
		c.ProjectTag = DefaultProjectTag
	}
}

func (c *Config) checkComplete() error {
	required := []struct {
		key   string
		value string
	}{
		{KeyBucketName, c.BucketName},
		{KeyCertificateArn, c.CertificateArn},
		{KeyHostedZoneId, c.HostedZoneId},
		{KeyHostedZoneName, c.HostedZoneName},
	}

	var errs []error
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, &MissingKeyError{Key: r.key})
		}
	}
	if c.Subdomain == "" && c.DomainName == "" {
		errs = append(errs, &MissingKeyError{Key: KeySubdomain, Alternatives: []string{KeyDomainName}})
	}
	if c.Account == "" {
		errs = append(errs, &MissingKeyError{Key: KeyDeployAccount, Alternatives: []string{KeyDefaultAccount}})
	}
	if c.Region == "" {
		errs = append(errs, &MissingKeyError{Key: KeyDeployRegion, Alternatives: []string{KeyDefaultRegion}})
	}
	return errors.Join(errs...)
}

func (c *Config) checkValues() error {
	var errs []error

	if !bucketNamePattern.MatchString(c.BucketName) || strings.Contains(c.BucketName, "..") {
		errs = append(errs, &InvalidValueError{
			Key:    KeyBucketName,
			Value:  c.BucketName,
			Reason: "must be 3-63 lowercase letters, digits, dots or hyphens",
		})
	}

	partition, err := certificatePartition(c.CertificateArn)
	if err != nil {
		errs = append(errs, err)
	}

	if !accountPattern.MatchString(c.Account) {
		errs = append(errs, &InvalidValueError{Key: KeyDeployAccount, Value: c.Account, Reason: "must be a 12 digit account id"})
	}

	strategy, fqdn, err := resolveDomain(c.Subdomain, c.DomainName, c.HostedZoneName)
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.partition = partition
	c.strategy = strategy
	c.fqdn = fqdn
	return nil
}

func certificatePartition(value string) (string, error) {
	parsed, err := arn.Parse(value)
	if err != nil {
		return "", &InvalidValueError{Key: KeyCertificateArn, Value: value, Reason: err.Error()}
	}
	if parsed.Service != "acm" || !strings.HasPrefix(parsed.Resource, "certificate/") {
		return "", &InvalidValueError{Key: KeyCertificateArn, Value: value, Reason: "not an ACM certificate ARN"}
	}
	if parsed.Region != certificateRegion {
		return "", &InvalidValueError{
			Key:    KeyCertificateArn,
			Value:  value,
			Reason: fmt.Sprintf("CloudFront requires a certificate in %s, got %s", certificateRegion, parsed.Region),
		}
	}
	return parsed.Partition, nil
}

func resolveDomain(subdomain, domainName, zoneName string) (DomainStrategy, string, error) {
	inZone := func(name string) bool {
		return name == zoneName || strings.HasSuffix(name, "."+zoneName)
	}

	switch {
	case subdomain != "" && domainName != "":
		return 0, "", &InvalidValueError{
			Key:    KeyDomainName,
			Value:  domainName,
			Reason: fmt.Sprintf("cannot be combined with %s", KeySubdomain),
		}

	case domainName != "":
		if !validHostname(domainName) {
			return 0, "", &InvalidValueError{Key: KeyDomainName, Value: domainName, Reason: "not a valid hostname"}
		}
		if !inZone(domainName) {
			return 0, "", &InvalidValueError{
				Key:    KeyDomainName,
				Value:  domainName,
				Reason: fmt.Sprintf("not inside hosted zone %s", zoneName),
			}
		}
		return StrategyFullDomain, domainName, nil

	default:
		if !validHostname(subdomain) {
			return 0, "", &InvalidValueError{Key: KeySubdomain, Value: subdomain, Reason: "not a valid label"}
		}
		if inZone(subdomain) {
			return 0, "", &InvalidValueError{
				Key:    KeySubdomain,
				Value:  subdomain,
				Reason: fmt.Sprintf("already ends with %s, use %s instead", zoneName, KeyDomainName),
			}
		}
		return StrategySubdomain, subdomain + "." + zoneName, nil
	}
}

func validHostname(name string) bool {
	if name == "" || len(name) > 253 {
		return false
	}
	for _, label := range strings.Split(name, ".") {
		if !labelPattern.MatchString(label) {
			return false
		}
	}
	return true
}

// Fqdn is the domain served by the distribution and named by both DNS records.
func (c *Config) Fqdn() string { return c.fqdn }

func (c *Config) Strategy() DomainStrategy { return c.strategy }

// Partition is the AWS partition of the certificate ARN.
func (c *Config) Partition() string { return c.partition }

func (c *Config) Validated() bool { return c.validated }
