package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeOrgFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "org.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestStatic(t *testing.T) {
	ctx := context.Background()
	s := &Static{Token: "tok", URL: "https://example.my.salesforce.com"}

	token, err := s.AccessToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok", token)

	url, err := s.InstanceURL(ctx)
	require.NoError(t, err)
	require.Equal(t, "https://example.my.salesforce.com", url)
}

func TestLoadOrgFile(t *testing.T) {
	path := writeOrgFile(t, `
access_token: 00Dxx0000001gPL!token
instance_url: https://dev-ed.my.salesforce.com
username: admin@example.com
org_id: 00Dxx0000001gPL
`)

	org, err := LoadOrgFile(path)
	require.NoError(t, err)
	require.Equal(t, "admin@example.com", org.Info.Username)
	require.Equal(t, "00Dxx0000001gPL", org.Info.OrgID)

	token, err := org.AccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "00Dxx0000001gPL!token", token)

	url, err := org.InstanceURL(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://dev-ed.my.salesforce.com", url)
}

func TestLoadOrgFile_NotFound(t *testing.T) {
	_, err := LoadOrgFile(filepath.Join(t.TempDir(), "missing.yaml"))

	var notFound *OrgFileNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestLoadOrgFile_InvalidYAML(t *testing.T) {
	_, err := LoadOrgFile(writeOrgFile(t, "access_token: [unterminated"))

	var parseErr *OrgFileParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestLoadOrgFile_MissingField(t *testing.T) {
	_, err := LoadOrgFile(writeOrgFile(t, "access_token: tok\n"))

	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "instance_url", missing.Field)
}

func TestOverride(t *testing.T) {
	ctx := context.Background()
	base := &Static{Token: "tok", URL: "https://org.my.salesforce.com"}

	require.Same(t, base, Override(base, ""))

	src := Override(base, "https://override.my.salesforce.com")

	url, err := src.InstanceURL(ctx)
	require.NoError(t, err)
	require.Equal(t, "https://override.my.salesforce.com", url)

	token, err := src.AccessToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok", token)
}
