package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nittei.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestReadConfig(t *testing.T) {
	path := writeConfigFile(t, `
client_id = "id.apps.googleusercontent.com"
listen = "127.0.0.1:9000"
timezone = "Asia/Tokyo"
request_timeout = "3s"
verbosity_level = 2

[view]
day_start_hour = 8
day_end_hour = 20
slot_minutes = 15

[caldavs.home]
name = "Home"
server_url = "https://dav.example.com/"
calendar = "personal"
username = "me"
password = "secret"
`)
	t.Setenv("NITTEI_CLIENT_ID", "")
	t.Setenv("NITTEI_LISTEN", "")

	config, err := readConfig(path)
	if err != nil {
		t.Fatalf("readConfig: %v", err)
	}
	if config.ClientID != "id.apps.googleusercontent.com" || config.Listen != "127.0.0.1:9000" {
		t.Fatalf("unexpected config %+v", config)
	}
	if config.RequestTimeout.Duration != 3*time.Second || config.VerbosityLevel != 2 {
		t.Fatalf("unexpected timeout or verbosity %+v", config)
	}
	if config.View != (ViewConfig{DayStartHour: 8, DayEndHour: 20, SlotMinutes: 15}) {
		t.Fatalf("unexpected view %+v", config.View)
	}
	if config.Location().String() != "Asia/Tokyo" {
		t.Fatalf("unexpected location %s", config.Location())
	}
	if home := config.CalDAVs["home"]; home.Calendar != "personal" || home.Username != "me" {
		t.Fatalf("unexpected caldav %+v", home)
	}
	// discovery_url keeps its default when absent
	if config.DiscoveryURL != defaultDiscoveryURL {
		t.Fatalf("discovery url = %q", config.DiscoveryURL)
	}
}

func TestReadConfigEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `client_id = "from-file"`)
	t.Setenv("NITTEI_CLIENT_ID", "from-env")
	t.Setenv("NITTEI_CLIENT_SECRET", "shh")
	t.Setenv("NITTEI_LISTEN", "127.0.0.1:0")

	config, err := readConfig(path)
	if err != nil {
		t.Fatalf("readConfig: %v", err)
	}
	if config.ClientID != "from-env" || config.ClientSecret != "shh" || config.Listen != "127.0.0.1:0" {
		t.Fatalf("env not applied: %+v", config)
	}
}

func TestReadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("NITTEI_CLIENT_ID", "")
	t.Setenv("NITTEI_LISTEN", "")
	t.Setenv("HOME", t.TempDir())

	config, err := readConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("readConfig: %v", err)
	}
	if config.ClientID != "" || config.Listen != defaultListen || config.View.SlotMinutes != 30 {
		t.Fatalf("unexpected defaults %+v", config)
	}
}

func TestReadConfigErrors(t *testing.T) {
	t.Setenv("NITTEI_LISTEN", "")
	cases := map[string]string{
		"syntax":   `client_id = `,
		"duration": `request_timeout = "soon"`,
		"hours":    "[view]\nday_start_hour = 20\nday_end_hour = 8",
		"slot":     "[view]\nslot_minutes = 25",
		"timezone": `timezone = "Mars/Olympus"`,
		"caldav":   "[caldavs.x]\nserver_url = \"https://dav.example.com/\"",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := readConfig(writeConfigFile(t, body)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NITTEI_CLIENT_ID", "")
	os.Unsetenv("NITTEI_CLIENT_ID")

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("NITTEI_CLIENT_ID=dotenv-id\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	loadDotEnv()
	if got := os.Getenv("NITTEI_CLIENT_ID"); got != "dotenv-id" {
		t.Fatalf("NITTEI_CLIENT_ID = %q", got)
	}
}
