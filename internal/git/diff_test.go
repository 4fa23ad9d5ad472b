package git

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/multimediallc/pr-import-bot/pkg/area"
	f "github.com/multimediallc/pr-import-bot/pkg/functional"
)

// mockGitExecutor implements gitCommandExecutor for testing
type mockGitExecutor struct {
	output   string
	err      error
	commands []string
}

func NewMockGitExecutor(output string, err error) *mockGitExecutor {
	return &mockGitExecutor{
		output: output,
		err:    err,
	}
}

func (e *mockGitExecutor) execute(ctx context.Context, command string, args ...string) ([]byte, error) {
	e.commands = append(e.commands, command+" "+strings.Join(args, " "))
	if e.err != nil {
		return nil, e.err
	}
	return []byte(e.output), nil
}

// Test fixtures
const sampleGitDiff = `diff --git a/src/Core/Kernel.php b/src/Core/Kernel.php
index abc..def 100644
--- a/src/Core/Kernel.php
+++ b/src/Core/Kernel.php
@@ -10,0 +11 @@ class Kernel
+        $this->boot();
diff --git a/src/Storefront/Resources/views/base.html.twig b/src/Storefront/Resources/views/base.html.twig
index ghi..jkl 100644
--- a/src/Storefront/Resources/views/base.html.twig
+++ b/src/Storefront/Resources/views/base.html.twig
@@ -20,0 +21,2 @@
+<div>
+</div>
diff --git a/src/Core/New.php b/src/Core/New.php
new file mode 100644
index 0000000..abc
--- /dev/null
+++ b/src/Core/New.php
@@ -0,0 +1 @@
+<?php
diff --git a/src/Core/Old.php b/src/Core/Old.php
deleted file mode 100644
index abc..0000000
--- a/src/Core/Old.php
+++ /dev/null
@@ -1,2 +0,0 @@
-<?php
-echo 1;
`

func TestNewDiff(t *testing.T) {
	tt := []struct {
		name          string
		context       DiffContext
		mockOutput    string
		mockError     error
		expectedErr   bool
		expectedFiles []string
	}{
		{
			name: "successful diff",
			context: DiffContext{
				Base: "main",
				Head: "feature",
				Dir:  ".",
			},
			mockOutput:    sampleGitDiff,
			expectedErr:   false,
			expectedFiles: []string{"src/Core/Kernel.php", "src/Storefront/Resources/views/base.html.twig", "src/Core/New.php"},
		},
		{
			name: "git command error",
			context: DiffContext{
				Base: "main",
				Head: "feature",
				Dir:  ".",
			},
			mockError:   errors.New("git command failed"),
			expectedErr: true,
		},
		{
			name: "ignore directories",
			context: DiffContext{
				Base:       "main",
				Head:       "feature",
				Dir:        ".",
				IgnoreDirs: []string{"src/Storefront"},
			},
			mockOutput:    sampleGitDiff,
			expectedErr:   false,
			expectedFiles: []string{"src/Core/Kernel.php", "src/Core/New.php"},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			executor := NewMockGitExecutor(tc.mockOutput, tc.mockError)

			diff, err := NewDiffWithExecutor(context.Background(), tc.context, executor)

			if tc.expectedErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if diff == nil {
				t.Error("expected non-nil diff")
				return
			}
			if !slices.Equal(executor.commands, []string{"git diff -U0 main...feature"}) {
				t.Errorf("unexpected git commands %v", executor.commands)
			}

			paths := f.Map(diff.ChangedFiles(), func(file area.ChangedFile) string { return file.Path })
			if !slices.Equal(paths, tc.expectedFiles) {
				t.Errorf("expected files %v, got %v", tc.expectedFiles, paths)
			}
			for _, file := range diff.ChangedFiles() {
				if file.ContentRef != file.Path {
					t.Errorf("expected content ref %s, got %s", file.Path, file.ContentRef)
				}
			}
			if diff.Context().Head != tc.context.Head {
				t.Errorf("expected context head %s, got %s", tc.context.Head, diff.Context().Head)
			}
		})
	}
}

func TestParsePatchWithoutPrefixes(t *testing.T) {
	patch := `diff --git src/Core/Kernel.php src/Core/Kernel.php
--- src/Core/Kernel.php
+++ src/Core/Kernel.php
@@ -1 +1 @@
-<?php
+<?php // changed
`
	files, err := ParsePatch([]byte(patch))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || files[0].Path != "src/Core/Kernel.php" {
		t.Errorf("unexpected files %+v", files)
	}
}

func TestParsePatchEmpty(t *testing.T) {
	files, err := ParsePatch([]byte(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files, got %+v", files)
	}
}
