package cli

import (
	"bytes"
	"strings"
	"testing"
)

// executeCommand runs a command with the given args and captures output.
func executeCommand(args ...string) (string, error) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootHelp(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, sub := range []string{"serve", "worker", "migrate", "cleanup-tokens"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing %q subcommand", sub)
		}
	}
}

func TestGlobalFlags(t *testing.T) {
	root := NewRootCmd()

	levelFlag := root.PersistentFlags().Lookup("log-level")
	if levelFlag == nil {
		t.Fatal("expected --log-level flag to exist")
	}
	if levelFlag.DefValue != "" {
		t.Errorf("expected --log-level default '', got %q", levelFlag.DefValue)
	}
}

func TestServeFlags(t *testing.T) {
	serve, _, err := NewRootCmd().Find([]string{"serve"})
	if err != nil {
		t.Fatalf("find serve: %v", err)
	}
	if serve.Flags().Lookup("with-worker") == nil {
		t.Fatal("expected --with-worker flag to exist")
	}
}

func TestMigrateRejectsBadArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no direction", []string{"migrate"}},
		{"unknown direction", []string{"migrate", "sideways"}},
		{"two directions", []string{"migrate", "up", "down"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCleanupRejectsNegativeRetention(t *testing.T) {
	_, err := executeCommand("cleanup-tokens", "--retention", "-1h")
	if err == nil || !strings.Contains(err.Error(), "retention") {
		t.Fatalf("error = %v, want retention error", err)
	}
}

func TestCleanupRetentionDefault(t *testing.T) {
	cleanup, _, err := NewRootCmd().Find([]string{"cleanup-tokens"})
	if err != nil {
		t.Fatalf("find cleanup-tokens: %v", err)
	}
	flag := cleanup.Flags().Lookup("retention")
	if flag == nil {
		t.Fatal("expected --retention flag to exist")
	}
	if flag.DefValue != "168h0m0s" {
		t.Errorf("expected --retention default 168h0m0s, got %q", flag.DefValue)
	}
}

func TestCommandsRejectArgs(t *testing.T) {
	for _, name := range []string{"serve", "worker", "cleanup-tokens"} {
		t.Run(name, func(t *testing.T) {
			_, err := executeCommand(name, "extra")
			if err == nil {
				t.Fatal("expected error for unexpected argument")
			}
		})
	}
}
