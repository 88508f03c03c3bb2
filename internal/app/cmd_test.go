package app

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand(&bytes.Buffer{})

	for _, name := range []Command{CommandServe, CommandMigrate, CommandHealthcheck} {
		t.Run(string(name), func(t *testing.T) {
			cmd, _, err := root.Find([]string{string(name)})
			if err != nil {
				t.Fatalf("Find(%q) error = %v", name, err)
			}
			if cmd.Name() != string(name) {
				t.Errorf("Find(%q) = %q", name, cmd.Name())
			}
		})
	}
}

func TestRootCommand_UnknownSubcommandFails(t *testing.T) {
	root := NewRootCommand(&bytes.Buffer{})
	root.SetArgs([]string{"worker"})

	err := root.Execute()
	if err == nil {
		t.Fatal("expected error for unknown subcommand")
	}
	if !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("error = %v, want unknown command", err)
	}
}

func TestRootCommand_ServeRejectsExtraArgs(t *testing.T) {
	root := NewRootCommand(&bytes.Buffer{})
	root.SetArgs([]string{"serve", "extra"})

	if err := root.Execute(); err == nil {
		t.Fatal("expected error for extra args")
	}
}

func TestHealthcheckCommand(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"正常", http.StatusOK, false},
		{"異常", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					t.Errorf("path = %q, want /health", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := runHealthcheck(t.Context(), srv.URL+"/health")
			if (err != nil) != tt.wantErr {
				t.Errorf("runHealthcheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHealthcheckCommand_PortFlagDefaultsToServerPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")

	cmd := newHealthcheckCommand()
	if got := cmd.Flags().Lookup("port").DefValue; got != "9090" {
		t.Errorf("port default = %q, want 9090", got)
	}
}
