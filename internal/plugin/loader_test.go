package plugin

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const markerPluginSource = `package main

import "os"

var marker = %q

func appendMarker(line string) {
	f, err := os.OpenFile(marker, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	f.WriteString(line + "\n")
}

func main() { appendMarker("main") }

func Init() error {
	appendMarker("init")
	return nil
}
`

func TestGoLoaderRunsMainAndInit(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(t.TempDir(), "marker.log")
	path := writePlugin(t, dir, "hooks", fmt.Sprintf(markerPluginSource, marker))

	require.NoError(t, NewGoLoader().Load(context.Background(), path))

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "main\ninit\n", string(data))
}

func TestGoLoaderThroughResolverRunsOnce(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(t.TempDir(), "marker.log")
	writePlugin(t, dir, "hooks", fmt.Sprintf(markerPluginSource, marker))

	r := NewResolver(NewGoLoader(), WithSearchDirs(dir))
	for range 3 {
		_, err := r.Resolve(context.Background(), "hooks")
		require.NoError(t, err)
	}

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "main\ninit\n", string(data))
}

func TestGoLoaderOutput(t *testing.T) {
	dir := t.TempDir()
	path := writePlugin(t, dir, "hello", `package main

import "fmt"

func main() { fmt.Println("hello from plugin") }
`)
	var out bytes.Buffer
	l := &GoLoader{Stdout: &out}
	require.NoError(t, l.Load(context.Background(), path))
	assert.Equal(t, "hello from plugin\n", out.String())
}

func TestGoLoaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"syntax error", "package main\nfunc {", "parse"},
		{"wrong package", "package hooks\n", "package main"},
		{"init with args", "package main\nfunc Init(x int) {}\n", "no arguments"},
		{"init error", "package main\nimport \"errors\"\nfunc Init() error { return errors.New(\"not ready\") }\n", "not ready"},
		{"undefined symbol", "package main\nfunc main() { missing() }\n", "interpret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePlugin(t, t.TempDir(), "p", tt.src)
			err := NewGoLoader().Load(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGoLoaderInitWithoutResult(t *testing.T) {
	path := writePlugin(t, t.TempDir(), "p", "package main\nvar ready bool\nfunc Init() { ready = true }\n")
	require.NoError(t, NewGoLoader().Load(context.Background(), path))
}

func TestGoLoaderRecoversInitPanic(t *testing.T) {
	path := writePlugin(t, t.TempDir(), "p", "package main\nfunc Init() { panic(\"kaboom\") }\n")
	err := NewGoLoader().Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}
