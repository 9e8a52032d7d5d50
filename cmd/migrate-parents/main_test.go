package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"fled-backend/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	dir := t.TempDir()
	creds := filepath.Join(dir, "service-account.json")
	require.NoError(t, os.WriteFile(creds, []byte(`{}`), 0o600))

	cfg := &config.Config{MigrateCredentials: creds, GoogleProjectID: "school-dev"}

	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr error
	}{
		{name: "dry run by default", args: nil, want: options{credentials: creds, projectID: "school-dev"}},
		{name: "apply", args: []string{"-apply"}, want: options{apply: true, credentials: creds, projectID: "school-dev"}},
		{name: "missing credentials", args: []string{"-credentials", filepath.Join(dir, "nope.json")}, wantErr: errCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args, cfg, io.Discard)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseArgsRejectsUnknownFlag(t *testing.T) {
	_, err := parseArgs([]string{"-force"}, &config.Config{}, io.Discard)
	assert.Error(t, err)
}
