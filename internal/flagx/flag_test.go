package flagx

import (
	"os"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	owned := []string{"-c", "-config"}

	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{"separate value", []string{"-c", "vault.yaml", "-d", "postgres://x"}, owned, []string{"-c", "vault.yaml"}},
		{"equals form", []string{"-config=vault.json", "-k", "s"}, owned, []string{"-config=vault.json"}},
		{"order preserved", []string{"-config=a.json", "-c", "b.json", "-a", ":8080"}, owned, []string{"-config=a.json", "-c", "b.json"}},
		{"foreign flags dropped", []string{"-d", "dsn", "-strict-encryption", "genkey"}, owned, []string{}},
		{"trailing flag without value", []string{"-c"}, owned, []string{"-c"}},
		{"dash token is not a value", []string{"-c", "-config=b.json"}, owned, []string{"-c", "-config=b.json"}},
		{"several owners", []string{"-a", ":8080", "-g", ":50051", "-d", "dsn"}, []string{"-a", "-g"}, []string{"-a", ":8080", "-g", ":50051"}},
		{"empty", []string{}, owned, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowed)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FilterArgs() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short -c with value", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", "/path/short.yaml"}
		assert.Equal(t, "/path/short.yaml", ConfigFileFlag())
	})

	t.Run("long -config with value", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", "/path/long.json"}
		assert.Equal(t, "/path/long.json", ConfigFileFlag())
	})

	t.Run("unknown flags are ignored", func(t *testing.T) {
		os.Args = []string{"testbin", "-x", "1", "-y", "2"}
		assert.Empty(t, ConfigFileFlag())
	})

	t.Run("multiple flags, last wins", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", "/path/1.json", "-config", "/path/2.json"}
		assert.Equal(t, "/path/2.json", ConfigFileFlag())
	})
}

func TestEnvFileFlag(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"testbin", "-d", "dsn", "-env-file", "/etc/vault.env", "-c", "cfg.yaml"}
	assert.Equal(t, "/etc/vault.env", EnvFileFlag())

	os.Args = []string{"testbin", "-env-file=prod.env"}
	assert.Equal(t, "prod.env", EnvFileFlag())

	os.Args = []string{"testbin"}
	assert.Empty(t, EnvFileFlag())
}

func TestLookupString(t *testing.T) {
	args := []string{"-k", "value", "-x", "1", "-key=other"}
	assert.Equal(t, "other", LookupString(args, "k", "key"))
	assert.Empty(t, LookupString(args, "missing"))
}
