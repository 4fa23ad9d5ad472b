package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/multimediallc/pr-import-bot/pkg/area"
)

type mockFileReaderExecutor struct {
	outputs map[string][]byte
	errors  map[string]error
}

func (m *mockFileReaderExecutor) execute(ctx context.Context, command string, args ...string) ([]byte, error) {
	key := fmt.Sprintf("%s %s", command, strings.Join(args, " "))
	if err, ok := m.errors[key]; ok {
		return nil, err
	}
	if output, ok := m.outputs[key]; ok {
		return output, nil
	}
	return nil, fmt.Errorf("unexpected command: %s", key)
}

func TestGitRefFetcher_Fetch(t *testing.T) {
	mockExec := &mockFileReaderExecutor{
		outputs: map[string][]byte{
			"git show headref123:src/Core/Kernel.php":            []byte("<?php\n#[Package('core')]\n"),
			"git show headref123:src/Storefront/Theme.php":       []byte("<?php\n"),
			"git cat-file -e headref123:src/Core/Unreadable.php": []byte(""),
		},
		errors: map[string]error{
			"git show headref123:nonexistent.php":         fmt.Errorf("fatal: path does not exist"),
			"git cat-file -e headref123:nonexistent.php":  fmt.Errorf("exit status 128"),
			"git show headref123:src/Core/Unreadable.php": fmt.Errorf("signal: killed"),
		},
	}

	fetcher := &GitRefFetcher{
		ref:      "headref123",
		dir:      "/repo",
		executor: mockExec,
	}

	tt := []struct {
		name      string
		path      string
		expected  string
		checkFunc func(t *testing.T, err error)
	}{
		{
			name:     "read file",
			path:     "src/Core/Kernel.php",
			expected: "<?php\n#[Package('core')]\n",
		},
		{
			name:     "read with leading slash",
			path:     "/src/Storefront/Theme.php",
			expected: "<?php\n",
		},
		{
			name:     "read with repo dir prefix",
			path:     "/repo/src/Storefront/Theme.php",
			expected: "<?php\n",
		},
		{
			name: "read nonexistent file",
			path: "nonexistent.php",
			checkFunc: func(t *testing.T, err error) {
				var notFound *area.NotFoundError
				if !errors.As(err, &notFound) {
					t.Errorf("expected NotFoundError, got %v", err)
				}
			},
		},
		{
			name: "existing file which cannot be read",
			path: "src/Core/Unreadable.php",
			checkFunc: func(t *testing.T, err error) {
				var transport *area.TransportError
				if !errors.As(err, &transport) {
					t.Errorf("expected TransportError, got %v", err)
				}
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			content, err := fetcher.Fetch(context.Background(), tc.path)

			if tc.checkFunc != nil {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				tc.checkFunc(t, err)
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if content != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, content)
			}
		})
	}
}

func TestGitRefFetcher_PathExists(t *testing.T) {
	mockExec := &mockFileReaderExecutor{
		outputs: map[string][]byte{
			"git cat-file -e headref123:src/Core/Kernel.php": []byte(""),
		},
		errors: map[string]error{
			"git cat-file -e headref123:nonexistent": fmt.Errorf("file not found"),
		},
	}

	fetcher := &GitRefFetcher{
		ref:      "headref123",
		dir:      "/repo",
		executor: mockExec,
	}

	tt := []struct {
		name     string
		path     string
		expected bool
	}{
		{"existing file", "src/Core/Kernel.php", true},
		{"nonexistent file", "nonexistent", false},
		{"existing file with leading slash", "/src/Core/Kernel.php", true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := fetcher.PathExists(context.Background(), tc.path); got != tc.expected {
				t.Errorf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

// TestGitRefFetcher_PathNormalization tests that absolute paths are correctly
// normalized to be relative to the repository root
func TestGitRefFetcher_PathNormalization(t *testing.T) {
	tt := []struct {
		name     string
		repoDir  string
		input    string
		expected string
	}{
		{"relative path unchanged", "/repo", "src/Core/Kernel.php", "src/Core/Kernel.php"},
		{"absolute path stripped", "/repo", "/repo/composer.json", "composer.json"},
		{"nested path with repo prefix", "/repo", "/repo/src/Core/Kernel.php", "src/Core/Kernel.php"},
		{"current directory repo with relative path", ".", "./composer.json", "composer.json"},
		{"path not under repo dir", "/repo", "/other/file.php", "other/file.php"},
		{"repo dir with trailing slash", "/repo/", "/repo/subdir/file.php", "subdir/file.php"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := &GitRefFetcher{ref: "test-ref", dir: tc.repoDir}
			if result := fetcher.normalizePathForGit(tc.input); result != tc.expected {
				t.Errorf("normalizePathForGit(%q) with dir=%q = %q, want %q", tc.input, tc.repoDir, result, tc.expected)
			}
		})
	}
}

func TestGitRefFetcher_FetchCancelled(t *testing.T) {
	mockExec := &mockFileReaderExecutor{
		errors: map[string]error{
			"git show headref123:src/Core/Kernel.php": fmt.Errorf("signal: killed"),
		},
	}
	fetcher := &GitRefFetcher{
		ref:      "headref123",
		dir:      "/repo",
		executor: mockExec,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fetcher.Fetch(ctx, "src/Core/Kernel.php")

	var transport *area.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected the cancellation to be reported, got %v", err)
	}
}
