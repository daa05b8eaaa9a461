package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
)

func checkStatus(report DoctorReport, name string) (DoctorStatus, bool) {
	for _, c := range report.Checks {
		if c.Name == name {
			return c.Status, true
		}
	}
	return "", false
}

func TestRunDoctorWithMissingConfigWarnsNoFailure(t *testing.T) {
	isolateHome(t)

	report, err := RunDoctor()
	if err != nil {
		t.Fatalf("run doctor: %v", err)
	}
	if report.HasFailures() {
		t.Fatalf("expected no failures with missing config, got %#v", report)
	}
	if st, _ := checkStatus(report, "config_file"); st != DoctorWarn {
		t.Fatalf("expected config_file warning, got %q", st)
	}
	if st, _ := checkStatus(report, "voice_dir"); st != DoctorPass {
		t.Fatalf("expected writable voice dir, got %q", st)
	}
}

func TestRunDoctorWithInvalidConfigFails(t *testing.T) {
	home := isolateHome(t)
	writeConfigFile(t, home, `{"model":`)

	report, err := RunDoctor()
	if err != nil {
		t.Fatalf("run doctor: %v", err)
	}
	if st, _ := checkStatus(report, "config_load"); st != DoctorFail {
		t.Fatalf("expected config_load failure, got %#v", report)
	}
}

func TestRunDoctorExposedGatewayRequiresToken(t *testing.T) {
	home := isolateHome(t)
	writeConfigFile(t, home, `{"gateway":{"host":"0.0.0.0","authToken":""}}`)

	report, err := RunDoctor()
	if err != nil {
		t.Fatalf("run doctor: %v", err)
	}
	if st, _ := checkStatus(report, "gateway_host"); st != DoctorFail {
		t.Fatalf("expected gateway_host failure, got %#v", report)
	}
}

func TestRunDoctorFlagsIncompleteSinks(t *testing.T) {
	home := isolateHome(t)
	writeConfigFile(t, home, `{"sinks":{"kafka":{"enabled":true,"brokers":""},"slack":{"enabled":true,"botToken":"xoxb","channelId":"C1"}}}`)

	report, err := RunDoctor()
	if err != nil {
		t.Fatal(err)
	}
	if st, _ := checkStatus(report, "sink_kafka"); st != DoctorFail {
		t.Fatalf("expected kafka sink failure, got %q", st)
	}
	if st, _ := checkStatus(report, "sink_slack"); st != DoctorPass {
		t.Fatalf("expected slack sink pass, got %q", st)
	}
}

func TestRunDoctorUnknownTimelineDriver(t *testing.T) {
	home := isolateHome(t)
	writeConfigFile(t, home, `{"timeline":{"enabled":true,"driver":"postgres"}}`)

	report, err := RunDoctor()
	if err != nil {
		t.Fatal(err)
	}
	if st, _ := checkStatus(report, "timeline"); st != DoctorFail {
		t.Fatalf("expected timeline failure, got %q", st)
	}
}

func TestDoctorFixMergesEnvFiles(t *testing.T) {
	home := isolateHome(t)
	work := t.TempDir()
	if err := os.MkdirAll(filepath.Join(home, ".commander"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, ".commander", ".env"), []byte("export OPENAI_API_KEY='sk-from-home'\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(work, ".env"), []byte("# local\nFOO=bar\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(work)

	report, err := RunDoctorWithOptions(DoctorOptions{Fix: true})
	if err != nil {
		t.Fatalf("run doctor --fix: %v", err)
	}
	if st, _ := checkStatus(report, "env_merge"); st != DoctorPass {
		t.Fatalf("expected env_merge pass, got %#v", report)
	}

	target := filepath.Join(home, ".config", "commander", "env")
	st, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat merged env file: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("expected env file mode 600, got %o", st.Mode().Perm())
	}
	kv, err := godotenv.Read(target)
	if err != nil {
		t.Fatalf("read merged env file: %v", err)
	}
	if kv["FOO"] != "bar" || kv["OPENAI_API_KEY"] != "sk-from-home" {
		t.Fatalf("missing merged keys in env file: %v", kv)
	}
}

func TestDoctorGenerateGatewayToken(t *testing.T) {
	home := isolateHome(t)
	path := writeConfigFile(t, home, `{"gateway":{"host":"127.0.0.1","authToken":""}}`)

	report, err := RunDoctorWithOptions(DoctorOptions{GenerateGatewayToken: true})
	if err != nil {
		t.Fatalf("run doctor: %v", err)
	}
	if st, _ := checkStatus(report, "gateway_token"); st != DoctorPass {
		t.Fatalf("expected gateway_token pass, got %#v", report)
	}
	m := readConfigFile(t, path)
	token, _ := m["gateway"].(map[string]any)["authToken"].(string)
	if len(token) != 64 {
		t.Fatalf("expected 64-char hex token, got %q", token)
	}
}

func TestIsLoopbackHost(t *testing.T) {
	for host, want := range map[string]bool{
		"127.0.0.1": true,
		"localhost": true,
		"::1":       true,
		"0.0.0.0":   false,
		"10.0.0.5":  false,
		"":          false,
	} {
		if got := isLoopbackHost(host); got != want {
			t.Errorf("isLoopbackHost(%q) = %v, want %v", host, got, want)
		}
	}
}
