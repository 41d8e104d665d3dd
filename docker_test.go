package myflix_test

import (
	"os"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDockerfileExists(t *testing.T) {
	_, err := os.Stat("Dockerfile")
	if err != nil {
		t.Fatalf("Dockerfile should exist: %v", err)
	}
}

func TestDockerfileMultiStageBuild(t *testing.T) {
	content := readFile(t, "Dockerfile")

	// マルチステージビルドの確認: ビルドステージと実行ステージが存在すること
	if !strings.Contains(content, "FROM golang:") {
		t.Error("Dockerfile should contain a Go builder stage (FROM golang:)")
	}

	// 最終ステージは軽量イメージであること
	var lastFrom string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "FROM ") {
			lastFrom = trimmed
		}
	}
	if !strings.Contains(lastFrom, "gcr.io/distroless") && !strings.Contains(lastFrom, "alpine") && !strings.Contains(lastFrom, "scratch") {
		t.Errorf("final stage should use a minimal base image (distroless/alpine/scratch), got: %s", lastFrom)
	}
}

func TestDockerfileBinaryName(t *testing.T) {
	content := readFile(t, "Dockerfile")

	// バイナリ名がmyflixであること
	if !strings.Contains(content, "./cmd/myflix") || !strings.Contains(content, "/myflix") {
		t.Error("Dockerfile should build ./cmd/myflix into a binary named 'myflix'")
	}
}

func TestDockerfileEntrypoint(t *testing.T) {
	content := readFile(t, "Dockerfile")

	if !strings.Contains(content, "ENTRYPOINT") && !strings.Contains(content, "CMD") {
		t.Error("Dockerfile should contain ENTRYPOINT or CMD")
	}

	// distroless環境ではhealthcheckサブコマンドでヘルスチェックを行う
	if !strings.Contains(content, "healthcheck") {
		t.Error("Dockerfile should run the healthcheck subcommand")
	}
}

func TestDockerfileDoesNotBakeSecret(t *testing.T) {
	content := readFile(t, "Dockerfile")

	if strings.Contains(content, "JWT_SECRET") {
		t.Error("Dockerfile must not set JWT_SECRET")
	}
}

type composeFile struct {
	Services map[string]struct {
		Image       string            `yaml:"image"`
		Command     []string          `yaml:"command"`
		Environment map[string]string `yaml:"environment"`
		Networks    []string          `yaml:"networks"`
	} `yaml:"services"`
	Networks map[string]struct {
		Internal bool `yaml:"internal"`
	} `yaml:"networks"`
}

func loadCompose(t *testing.T) composeFile {
	t.Helper()
	var c composeFile
	if err := yaml.Unmarshal([]byte(readFile(t, "docker-compose.yml")), &c); err != nil {
		t.Fatalf("failed to parse docker-compose.yml: %v", err)
	}
	return c
}

func TestDockerComposeServices(t *testing.T) {
	c := loadCompose(t)

	// api, worker, db, migrate の4コンテナ構成
	for _, svc := range []string{"api", "worker", "db", "migrate"} {
		if _, ok := c.Services[svc]; !ok {
			t.Errorf("docker-compose.yml should contain service %q", svc)
		}
	}
}

func TestDockerComposePostgres(t *testing.T) {
	c := loadCompose(t)

	if !strings.HasPrefix(c.Services["db"].Image, "postgres:") {
		t.Errorf("db service should use PostgreSQL image, got %q", c.Services["db"].Image)
	}
}

func TestDockerComposeCommands(t *testing.T) {
	c := loadCompose(t)

	tests := map[string]string{
		"api":     "serve",
		"worker":  "worker",
		"migrate": "migrate",
	}
	for svc, want := range tests {
		cmd := c.Services[svc].Command
		if len(cmd) == 0 || cmd[0] != want {
			t.Errorf("service %q command = %v, want subcommand %q", svc, cmd, want)
		}
	}
}

func TestDockerComposeDoesNotInlineSecret(t *testing.T) {
	c := loadCompose(t)

	for name, svc := range c.Services {
		if _, ok := svc.Environment["JWT_SECRET"]; ok {
			t.Errorf("service %q must not inline JWT_SECRET", name)
		}
	}
}

func TestDockerComposeNetworks(t *testing.T) {
	c := loadCompose(t)

	// DBはinternalネットワークのみに接続すること
	if !c.Networks["backend"].Internal {
		t.Error("backend network should be internal")
	}
	for _, n := range c.Services["db"].Networks {
		if !c.Networks[n].Internal {
			t.Errorf("db should only join internal networks, joined %q", n)
		}
	}

	// APIのみ外部公開ネットワークにも接続する
	var exposed bool
	for _, n := range c.Services["api"].Networks {
		if !c.Networks[n].Internal {
			exposed = true
		}
	}
	if !exposed {
		t.Error("api should join a non-internal network")
	}
}

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}
