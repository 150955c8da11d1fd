package common

import (
	"os"
	"path/filepath"
	"testing"

	"careerscope/internal/errors"
)

func TestValidateFileSize(t *testing.T) {
	fp := NewFileProcessor(nil)
	path := filepath.Join(t.TempDir(), "resume.txt")
	if err := os.WriteFile(path, []byte("0123456789"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Run("accepts a file under the limit", func(t *testing.T) {
		if err := fp.ValidateFileSize(path, 100); err != nil {
			t.Errorf("ValidateFileSize() error: %v", err)
		}
	})

	t.Run("rejects a file over the limit", func(t *testing.T) {
		err := fp.ValidateFileSize(path, 5)
		if err == nil {
			t.Fatal("expected an error for an oversized file")
		}
		var appErr *errors.AppError
		if !errors.As(err, &appErr) || appErr.Type != errors.ErrorTypeValidation {
			t.Errorf("error %v, want a validation AppError", err)
		}
	})

	t.Run("zero limit disables the check", func(t *testing.T) {
		if err := fp.ValidateFileSize(path, 0); err != nil {
			t.Errorf("ValidateFileSize() error: %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		err := fp.ValidateFileSize(filepath.Join(t.TempDir(), "nope.txt"), 100)
		var appErr *errors.AppError
		if !errors.As(err, &appErr) || appErr.Code != errors.ErrCodeFileNotFound {
			t.Errorf("error %v, want code %s", err, errors.ErrCodeFileNotFound)
		}
	})
}

func TestReadFile(t *testing.T) {
	fp := NewFileProcessor(nil)

	t.Run("reads content back", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "resume.txt")
		if err := os.WriteFile(path, []byte("experienced gopher"), 0600); err != nil {
			t.Fatal(err)
		}
		content, err := fp.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile() error: %v", err)
		}
		if string(content) != "experienced gopher" {
			t.Errorf("content = %q, want original text", content)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := fp.ReadFile(filepath.Join(t.TempDir(), "nope.txt"))
		var appErr *errors.AppError
		if !errors.As(err, &appErr) || appErr.Code != errors.ErrCodeFileNotFound {
			t.Errorf("error %v, want code %s", err, errors.ErrCodeFileNotFound)
		}
	})
}
