package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"SOURCE_LANG", "TARGET_LANG", "BAIDU_FANYI_MAX_RPS", "REQUEST_TIMEOUT", "FAILURE_POLICY", "MAX_IN_FLIGHT", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, "en", cfg.SourceLang)
	assert.Equal(t, "zh", cfg.TargetLang)
	assert.Equal(t, 1, cfg.BaiduMaxRPS)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "recover", cfg.FailurePolicy)
	assert.Equal(t, 0, cfg.MaxInFlight)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ClampsInvalidNumbers(t *testing.T) {
	t.Setenv("BAIDU_FANYI_MAX_RPS", "-3")
	t.Setenv("DEEPL_MAX_RPS", "nope")
	t.Setenv("MAX_IN_FLIGHT", "-1")
	t.Setenv("REQUEST_TIMEOUT", "0s")
	t.Setenv("FAILURE_POLICY", "ABORT")

	cfg := Load()
	assert.Equal(t, 1, cfg.BaiduMaxRPS)
	assert.Equal(t, 5, cfg.DeepLMaxRPS)
	assert.Equal(t, 0, cfg.MaxInFlight)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "abort", cfg.FailurePolicy)
}

func TestValidate_Rejects(t *testing.T) {
	base := Config{SourceLang: "en", TargetLang: "zh", FailurePolicy: "recover", LogLevel: "info", LogFormat: "json"}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad target", func(c *Config) { c.TargetLang = "not a tag!" }, "TARGET_LANG"},
		{"bad source", func(c *Config) { c.SourceLang = "??" }, "SOURCE_LANG"},
		{"bad policy", func(c *Config) { c.FailurePolicy = "ignore" }, "FAILURE_POLICY"},
		{"bad level", func(c *Config) { c.LogLevel = "trace" }, "LOG_LEVEL"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateBackend(t *testing.T) {
	var c Config
	assert.ErrorContains(t, c.ValidateBackend("baidu_fanyi"), "BAIDU_FANYI_APPID")
	c.BaiduAppID = "id"
	assert.ErrorContains(t, c.ValidateBackend("baidu_fanyi"), "BAIDU_FANYI_SECRET")
	c.BaiduSecret = "s"
	assert.NoError(t, c.ValidateBackend("baidu_fanyi"))

	assert.ErrorContains(t, c.ValidateBackend("deepl"), "DEEPL_API_KEY")
	assert.ErrorContains(t, c.ValidateBackend("claude"), "ANTHROPIC_API_KEY")
	assert.NoError(t, c.ValidateBackend("noop"))
	assert.NoError(t, c.ValidateBackend("pseudo"))
}

func TestParsePipeline_FillsDefaults(t *testing.T) {
	p, err := ParsePipeline(strings.NewReader("parse: markdown\nwork: noop\n"))
	require.NoError(t, err)

	want := DefaultPipeline()
	want.Parse = "markdown"
	want.Work = "noop"
	assert.Equal(t, want, p)
}

func TestParsePipeline_EmptyIsDefault(t *testing.T) {
	p, err := ParsePipeline(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultPipeline(), p)
}

func TestParsePipeline_RejectsUnknownKeys(t *testing.T) {
	_, err := ParsePipeline(strings.NewReader("parse: rst\ntranslate: deepl\n"))
	assert.Error(t, err)
}

func TestLoadPipeline_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("filter_process: prose\n"), 0o644))

	p, err := LoadPipeline(path)
	require.NoError(t, err)
	assert.Equal(t, "prose", p.FilterProcess)
	assert.Equal(t, "rst", p.Parse)

	_, err = LoadPipeline(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	p, err = LoadPipeline("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPipeline(), p)
}

func TestPipelineMerge(t *testing.T) {
	p := DefaultPipeline().Merge(Pipeline{Work: "deepl", Render: ""})
	assert.Equal(t, "deepl", p.Work)
	assert.Equal(t, "json", p.Render)
}
