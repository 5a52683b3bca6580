package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestVaultError_Error(t *testing.T) {
	err := New(ErrCategoryCatalog, CodeCatalogEmpty, "no partitions found")
	expected := "[CATALOG:CATALOG_EMPTY] no partitions found"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestVaultError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCategoryStorage, CodePartitionReadFailed, "read failed", cause)
	expected := "[STORAGE:PARTITION_READ_FAILED] read failed: connection refused"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestVaultError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ErrCategoryScan, CodePartitionReadFailed, "scan aborted", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestVaultError_Is(t *testing.T) {
	err1 := New(ErrCategoryCatalog, CodeMalformedPartitionName, "first")
	err2 := New(ErrCategoryCatalog, CodeMalformedPartitionName, "second")
	err3 := New(ErrCategoryCatalog, CodeCatalogEmpty, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}
}

func TestVaultError_WithDetails(t *testing.T) {
	err := New(ErrCategoryCatalog, CodeMalformedPartitionName, "bad ordinal").
		WithDetails(map[string]interface{}{"name": "abc.sqlite"})
	if err.Details["name"] != "abc.sqlite" {
		t.Errorf("details not carried: %v", err.Details)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		category  ErrorCategory
		code      string
		retryable bool
	}{
		{ErrCategoryScan, CodePartitionReadFailed, true},
		{ErrCategoryIngest, CodePartitionWriteFailed, true},
		{ErrCategoryScan, CodePartitionNotFound, false},
		{ErrCategoryCatalog, CodeCatalogEmpty, false},
		{ErrCategoryCatalog, CodeMalformedPartitionName, false},
		{ErrCategoryCatalog, CodeDirectoryNotFound, false},
		{ErrCategoryInternal, CodeUnexpected, false},
	}

	for _, tt := range tests {
		err := New(tt.category, tt.code, "test")
		if IsRetryable(err) != tt.retryable {
			t.Errorf("%s:%s retryable=%v, want %v", tt.category, tt.code, IsRetryable(err), tt.retryable)
		}
	}
}

func TestGetCategoryAndCode(t *testing.T) {
	err := New(ErrCategoryScan, CodePartitionNotFound, "gone")
	if GetCategory(err) != ErrCategoryScan {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryScan)
	}
	if GetCode(err) != CodePartitionNotFound {
		t.Errorf("got %q, want %q", GetCode(err), CodePartitionNotFound)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-VaultError should return empty category")
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("non-VaultError should return empty code")
	}
}

func TestGetCode_WrappedChain(t *testing.T) {
	inner := New(ErrCategoryStorage, CodePartitionNotFound, "object missing")
	outer := fmt.Errorf("scan: %w", inner)
	if GetCode(outer) != CodePartitionNotFound {
		t.Errorf("code should be found through fmt wrapping, got %q", GetCode(outer))
	}
}
