//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/itparc/inventory/config"
	"github.com/itparc/inventory/internal/db"
	"github.com/itparc/inventory/internal/logging"
	"github.com/itparc/inventory/internal/server"
	_ "github.com/lib/pq"
)

const (
	serverPort = 18080
)

var baseURL = fmt.Sprintf("http://localhost:%d", serverPort)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	setEnv()
	cfg := config.LoadConfig()

	if err := waitForPostgres(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := db.MigrateUp(cfg.Database); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := server.New(ctx, cfg, logging.New("warn", "text", os.Stderr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}
	go func() {
		_ = srv.Start()
	}()

	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown(context.Background())
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown(context.Background())
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestInventoryLifecycle(t *testing.T) {
	suffix := time.Now().UnixNano()
	admin := register(t, fmt.Sprintf("admin_%d", suffix), "admin")
	user := register(t, fmt.Sprintf("user_%d", suffix), "")
	outsider := register(t, fmt.Sprintf("outsider_%d", suffix), "")

	var equipment struct {
		ID                 int    `json:"id"`
		AssignedToUsername string `json:"assignedToUsername"`
	}
	status := call(t, http.MethodPost, "/api/equipments", admin.Token, map[string]any{
		"name":         "ThinkPad T14",
		"type":         "computer",
		"serialNumber": fmt.Sprintf("SN-%d", suffix),
		"purchaseDate": "2024-03-01",
		"assignedTo":   user.Username,
	}, &equipment)
	if status != http.StatusCreated {
		t.Fatalf("create equipment status %d", status)
	}
	if equipment.AssignedToUsername != user.Username {
		t.Fatalf("unexpected assignee: %q", equipment.AssignedToUsername)
	}

	equipmentPath := fmt.Sprintf("/api/equipments/%d", equipment.ID)
	if status := call(t, http.MethodGet, equipmentPath, user.Token, nil, nil); status != http.StatusOK {
		t.Fatalf("assignee get status %d", status)
	}
	if status := call(t, http.MethodGet, equipmentPath, outsider.Token, nil, nil); status != http.StatusForbidden {
		t.Fatalf("outsider get status %d", status)
	}

	var record struct {
		ID            int `json:"id"`
		PerformedByID int `json:"performedById"`
	}
	status = call(t, http.MethodPost, "/api/maintenances", user.Token, map[string]any{
		"equipmentId": equipment.ID,
		"description": "Battery replacement",
		"cost":        89.9,
	}, &record)
	if status != http.StatusCreated {
		t.Fatalf("create maintenance status %d", status)
	}
	if record.PerformedByID != user.ID {
		t.Fatalf("unexpected performer: %d", record.PerformedByID)
	}

	attachmentID := upload(t, user.Token, record.ID, "invoice.pdf", []byte("%PDF-1.7 invoice"))
	body := download(t, user.Token, record.ID, attachmentID)
	if string(body) != "%PDF-1.7 invoice" {
		t.Fatalf("unexpected attachment body: %q", body)
	}

	var history []json.RawMessage
	if status := call(t, http.MethodGet, fmt.Sprintf("/api/maintenances/%d", equipment.ID), user.Token, nil, &history); status != http.StatusOK {
		t.Fatalf("list maintenance status %d", status)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 maintenance record, got %d", len(history))
	}

	recordPath := fmt.Sprintf("/api/maintenances/%d", record.ID)
	if status := call(t, http.MethodDelete, recordPath, user.Token, nil, nil); status != http.StatusForbidden {
		t.Fatalf("user delete maintenance status %d", status)
	}
	if status := call(t, http.MethodDelete, recordPath, admin.Token, nil, nil); status != http.StatusOK {
		t.Fatalf("admin delete maintenance status %d", status)
	}

	if status := call(t, http.MethodDelete, equipmentPath, admin.Token, nil, nil); status != http.StatusOK {
		t.Fatalf("delete equipment status %d", status)
	}
	if status := call(t, http.MethodGet, equipmentPath, admin.Token, nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected deleted equipment to be missing, got %d", status)
	}
}

type session struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

func register(t *testing.T, username, role string) session {
	t.Helper()

	var s session
	status := call(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "testpass123!",
		"role":     role,
	}, &s)
	if status != http.StatusCreated {
		t.Fatalf("register %s status %d", username, status)
	}
	if s.Token == "" {
		t.Fatalf("missing token in register response")
	}
	return s
}

// call sends a JSON request and decodes a JSON response into out when it is
// not nil. It returns the status code.
func call(t *testing.T, method, path, token string, in, out any) int {
	t.Helper()

	var reader io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("encode request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func upload(t *testing.T, token string, recordID int, filename string, data []byte) int {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/api/maintenances/%d/attachments", baseURL, recordID), &body)
	if err != nil {
		t.Fatalf("build upload request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var parsed struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return parsed.ID
}

func download(t *testing.T, token string, recordID, attachmentID int) []byte {
	t.Helper()

	url := fmt.Sprintf("%s/api/maintenances/%d/attachments/%d", baseURL, recordID, attachmentID)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build download request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	return data
}

func setEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "inventory")
	_ = os.Setenv("DB_PASSWORD", "password")
	_ = os.Setenv("DB_NAME", "inventory_db")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("STORAGE_BACKEND", "minio")
	_ = os.Setenv("MINIO_ENDPOINT", "localhost:9000")
	_ = os.Setenv("MINIO_ACCESS_KEY", "minioadmin")
	_ = os.Setenv("MINIO_SECRET_KEY", "minioadmin")
	_ = os.Setenv("MINIO_BUCKET", "inventory-e2e")
}

func waitForPostgres(ctx context.Context, cfg config.Config) error {
	conn, err := sql.Open("postgres", db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
