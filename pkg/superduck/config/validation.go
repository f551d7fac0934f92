package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrRemoteNotConfigured is returned by RemoteReady when the bucket or the
// credentials are incomplete.
var ErrRemoteNotConfigured = errors.New("remote bucket not configured")

var validate = validator.New()

// Validate checks the struct tag rules of cfg.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// RemoteReady reports whether cfg has enough information to talk to the
// bucket. Credentials may be left empty to use the default AWS chain, but a
// key id without its secret (or the reverse) is rejected.
func (c *Config) RemoteReady() error {
	if c.AWS.Bucket == "" {
		return fmt.Errorf("%w: aws.bucket is empty", ErrRemoteNotConfigured)
	}
	if c.AWS.Region == "" {
		return fmt.Errorf("%w: aws.region is empty", ErrRemoteNotConfigured)
	}
	if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
		return fmt.Errorf("%w: access key id and secret must be set together", ErrRemoteNotConfigured)
	}
	if err := validate.Var(c.AWS.AccessKeyID, fmt.Sprintf("omitempty,len=%d", AccessKeyIDLength)); err != nil {
		return fmt.Errorf("%w: access key id must be %d characters", ErrRemoteNotConfigured, AccessKeyIDLength)
	}
	if err := validate.Var(c.AWS.SecretAccessKey, fmt.Sprintf("omitempty,len=%d", SecretAccessKeyLength)); err != nil {
		return fmt.Errorf("%w: secret access key must be %d characters", ErrRemoteNotConfigured, SecretAccessKeyLength)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}

// Masked returns a copy of cfg with secrets replaced, for display.
func (c *Config) Masked() Config {
	out := *c
	out.AWS.SecretAccessKey = mask(c.AWS.SecretAccessKey)
	out.AWS.AccessKeyID = mask(c.AWS.AccessKeyID)
	return out
}

func mask(s string) string {
	if len(s) <= 4 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return s[:4] + "****"
}
