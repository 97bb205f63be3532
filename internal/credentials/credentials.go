// Package credentials provides the fixture values the conformance harness
// serves through get_access_token and get_instance_url.
package credentials

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	abi "github.com/woxQAQ/orgcreds-wasm/api/wasm"
)

// Static serves fixed values.
type Static struct {
	Token string
	URL   string
}

var _ abi.CredentialSource = (*Static)(nil)

// AccessToken implements abi.CredentialSource.
func (s *Static) AccessToken(context.Context) (string, error) {
	return s.Token, nil
}

// InstanceURL implements abi.CredentialSource.
func (s *Static) InstanceURL(context.Context) (string, error) {
	return s.URL, nil
}

// OrgInfo is the subset of an org definition the harness needs.
type OrgInfo struct {
	AccessToken string `yaml:"access_token"`
	InstanceURL string `yaml:"instance_url"`
	Username    string `yaml:"username"`
	OrgID       string `yaml:"org_id"`
}

// OrgFile serves the values of an org definition loaded from YAML.
type OrgFile struct {
	Path string
	Info OrgInfo
}

var _ abi.CredentialSource = (*OrgFile)(nil)

// LoadOrgFile reads and validates an org definition.
func LoadOrgFile(path string) (*OrgFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &OrgFileNotFoundError{Path: path, Err: err}
	}

	var info OrgInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, &OrgFileParseError{Path: path, Err: err}
	}

	if info.AccessToken == "" {
		return nil, &MissingFieldError{Path: path, Field: "access_token"}
	}
	if info.InstanceURL == "" {
		return nil, &MissingFieldError{Path: path, Field: "instance_url"}
	}

	return &OrgFile{Path: path, Info: info}, nil
}

// AccessToken implements abi.CredentialSource.
func (o *OrgFile) AccessToken(context.Context) (string, error) {
	return o.Info.AccessToken, nil
}

// InstanceURL implements abi.CredentialSource.
func (o *OrgFile) InstanceURL(context.Context) (string, error) {
	return o.Info.InstanceURL, nil
}

// Override returns a source that reports instanceURL instead of the base
// value when instanceURL is set. A configured instance URL takes
// precedence over the one recorded for the org.
func Override(base abi.CredentialSource, instanceURL string) abi.CredentialSource {
	if instanceURL == "" {
		return base
	}
	return &override{CredentialSource: base, instanceURL: instanceURL}
}

type override struct {
	abi.CredentialSource
	instanceURL string
}

func (o *override) InstanceURL(context.Context) (string, error) {
	return o.instanceURL, nil
}

// OrgFileNotFoundError occurs when an org file cannot be read.
type OrgFileNotFoundError struct {
	Path string
	Err  error
}

func (e *OrgFileNotFoundError) Error() string {
	return fmt.Sprintf("org file not found at '%s': %v", e.Path, e.Err)
}

func (e *OrgFileNotFoundError) Unwrap() error {
	return e.Err
}

// OrgFileParseError occurs when an org file is not valid YAML.
type OrgFileParseError struct {
	Path string
	Err  error
}

func (e *OrgFileParseError) Error() string {
	return fmt.Sprintf("failed to parse org file at '%s': %v", e.Path, e.Err)
}

func (e *OrgFileParseError) Unwrap() error {
	return e.Err
}

// MissingFieldError occurs when a required org field is empty.
type MissingFieldError struct {
	Path  string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("org file '%s' is missing required field '%s'", e.Path, e.Field)
}
