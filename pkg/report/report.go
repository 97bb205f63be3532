package report

// Result types shared by the harness and the abicheck CLI.

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Status is the outcome of a single check.
type Status int

const (
	StatusPass Status = iota + 1
	StatusFail
	StatusSkip
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusFail:
		return "fail"
	case StatusSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// MarshalText makes Status render as its name in JSON and YAML.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pass":
		*s = StatusPass
	case "fail":
		*s = StatusFail
	case "skip":
		*s = StatusSkip
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// Kind separates load-time checks from checks that run a live instance.
type Kind string

const (
	KindStatic  Kind = "static"
	KindDynamic Kind = "dynamic"
)

// CheckResult is one ABI check against one guest.
type CheckResult struct {
	Name    string `json:"name" yaml:"name"`
	Kind    Kind   `json:"kind" yaml:"kind"`
	Status  Status `json:"status" yaml:"status"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// GuestReport collects the checks run against one guest.
type GuestReport struct {
	Name       string        `json:"name" yaml:"name"`
	Version    string        `json:"version,omitempty" yaml:"version,omitempty"`
	ABIVersion string        `json:"abiVersion,omitempty" yaml:"abi_version,omitempty"`
	Source     string        `json:"source" yaml:"source"`
	Digest     string        `json:"digest,omitempty" yaml:"digest,omitempty"`
	Checks     []CheckResult `json:"checks" yaml:"checks"`
}

// Passed reports whether no check failed. Skipped checks do not fail a guest.
func (g *GuestReport) Passed() bool {
	for _, c := range g.Checks {
		if c.Status == StatusFail {
			return false
		}
	}
	return true
}

// Failed returns the failing checks.
func (g *GuestReport) Failed() []CheckResult {
	var failed []CheckResult
	for _, c := range g.Checks {
		if c.Status == StatusFail {
			failed = append(failed, c)
		}
	}
	return failed
}

// Report is the outcome of one harness run.
type Report struct {
	ABIVersion  string        `json:"abiVersion" yaml:"abi_version"`
	GeneratedAt time.Time     `json:"generatedAt" yaml:"generated_at"`
	Guests      []GuestReport `json:"guests" yaml:"guests"`
}

// Passed reports whether every guest passed.
func (r *Report) Passed() bool {
	for i := range r.Guests {
		if !r.Guests[i].Passed() {
			return false
		}
	}
	return true
}

// Format selects the encoding used by Encode.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported report format %q (want json or yaml)", s)
	}
}

// Encode writes the report to w.
func (r *Report) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}
