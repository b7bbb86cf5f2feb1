package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeEnvKey_UsesExistingCamelCaseKeys(t *testing.T) {
	existing := map[string]any{
		"postgres": map[string]any{
			"sslMode": "disable",
			"master": map[string]any{
				"userName": "user",
			},
		},
		"profile": map[string]any{
			"resolveAttempts": 5,
		},
		"secretKey": map[string]any{
			"session": "",
		},
	}

	tests := []struct {
		envKey string
		want   string
	}{
		{envKey: "POSTGRES_SSLMODE", want: "postgres.sslMode"},
		{envKey: "POSTGRES_MASTER_USERNAME", want: "postgres.master.userName"},
		{envKey: "PROFILE_RESOLVEATTEMPTS", want: "profile.resolveAttempts"},
		{envKey: "SECRETKEY_SESSION", want: "secretKey.session"},
		{envKey: "NEW_FEATURE_FLAG", want: "new.feature.flag"},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			assert.Equal(t, tt.want, canonicalizeEnvKey(tt.envKey, existing))
		})
	}
}

func TestWithDefaults_FillsOptionalSections(t *testing.T) {
	cfg := &Config{}
	cfg.WithDefaults()

	assert.Equal(t, defaultMaxRequestBodySize, cfg.HTTP.MaxRequestBodySize)
	assert.Equal(t, "/login", cfg.Routes.SignIn)
	assert.Equal(t, "/lawyer/dashboard", cfg.Routes.LawyerHome)
	assert.Equal(t, "/judge/dashboard", cfg.Routes.JudgeHome)
	assert.Equal(t, 5, cfg.Profile.ResolveAttempts)
	assert.Equal(t, time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 6, cfg.PasswordStrength.MinLength)
	assert.Equal(t, "inprocess", cfg.PubSub.Provider)
}

func TestWithDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Routes:  &RoutesConfig{SignIn: "/signin"},
		Profile: &ProfileConfig{ResolveAttempts: 2, ResolveBackoff: time.Second},
	}
	cfg.WithDefaults()

	assert.Equal(t, "/signin", cfg.Routes.SignIn)
	assert.Equal(t, "/judge/dashboard", cfg.Routes.JudgeHome)
	assert.Equal(t, 2, cfg.Profile.ResolveAttempts)
	assert.Equal(t, time.Second, cfg.Profile.ResolveBackoff)
}

func TestLoadWithEnv_OverlaysEnvironment(t *testing.T) {
	dir := t.TempDir()
	yamlBody := "auth:\n  sessionTTL: 10m\n  loginBurst: 3\nroutes:\n  signIn: /login\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lexcourt.yaml"), []byte(yamlBody), 0o600))

	t.Chdir(dir)
	t.Setenv("AUTH_LOGINBURST", "9")

	cfg, err := LoadWithEnv[Config]("lexcourt")
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.Auth.SessionTTL)
	assert.Equal(t, 9, cfg.Auth.LoginBurst)
	assert.Equal(t, "/login", cfg.Routes.SignIn)
}

func TestLoadWithEnv_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := LoadWithEnv[Config]("absent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.yaml not found")
}
