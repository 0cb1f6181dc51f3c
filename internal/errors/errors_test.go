package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestAutoAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AutoAPIError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("file not found"), CategoryTemplate, SeverityError, "template failed"),
			expected: "template (error): template failed: file not found",
		},
		{
			name:     "context keys are sorted",
			err:      UnknownOption("mypkg", "bogus"),
			expected: "config (fatal): unknown option [key=bogus root=mypkg]",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := test.err.Error()
			if result != test.expected {
				t.Errorf("Error() = %q, want %q", result, test.expected)
			}
		})
	}
}

func TestAutoAPIError_WithContext(t *testing.T) {
	err := New(CategoryHook, SeverityError, "listener failed").
		WithContext("node", "mypkg.sub").
		WithContext("listener", 2)

	if err.Context["node"] != "mypkg.sub" {
		t.Errorf("Context[node] = %v, want mypkg.sub", err.Context["node"])
	}
	if err.Context["listener"] != 2 {
		t.Errorf("Context[listener] = %v, want 2", err.Context["listener"])
	}
}

func TestIsCategory(t *testing.T) {
	configErr := UnknownOption("mypkg", "bogus")
	discoveryErr := DiscoveryError("mypkg.broken", fmt.Errorf("import failed"))
	wrapped := fmt.Errorf("root mypkg: %w", discoveryErr)
	standardErr := fmt.Errorf("standard error")

	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		expected bool
	}{
		{"config error matches config category", configErr, CategoryConfig, true},
		{"config error doesn't match discovery category", configErr, CategoryDiscovery, false},
		{"wrapped discovery error matches", wrapped, CategoryDiscovery, true},
		{"standard error doesn't match any category", standardErr, CategoryConfig, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsCategory(test.err, test.category)
			if result != test.expected {
				t.Errorf("IsCategory() = %v, want %v", result, test.expected)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(DuplicatePath("a.b", "a_b", "out/a_b.md")) {
		t.Error("duplicate path should be fatal")
	}
	if IsFatal(WriteError("a", "out/a.md", fmt.Errorf("disk full"))) {
		t.Error("write errors are scoped to a node")
	}
	if IsFatal(fmt.Errorf("plain")) {
		t.Error("plain errors are not classified")
	}
}

func TestGetCategory(t *testing.T) {
	if got := GetCategory(fmt.Errorf("plain")); got != CategoryInternal {
		t.Errorf("GetCategory() = %v, want %v", got, CategoryInternal)
	}
	if got := GetCategory(HookError("x", fmt.Errorf("boom"))); got != CategoryHook {
		t.Errorf("GetCategory() = %v, want %v", got, CategoryHook)
	}
}

func TestConstructors(t *testing.T) {
	t.Run("DuplicatePath", func(t *testing.T) {
		err := DuplicatePath("mypkg.a-b", "mypkg.a_b", "api/mypkg.a_b.md")
		if err.Category != CategoryConfig {
			t.Errorf("Category = %v, want %v", err.Category, CategoryConfig)
		}
		if err.Context["first"] != "mypkg.a-b" || err.Context["second"] != "mypkg.a_b" {
			t.Errorf("Context = %v, want both qualified paths", err.Context)
		}
	})

	t.Run("WriteError", func(t *testing.T) {
		cause := fmt.Errorf("permission denied")
		err := WriteError("mypkg", "/out/mypkg.md", cause)
		if err.Category != CategoryFileSystem {
			t.Errorf("Category = %v, want %v", err.Category, CategoryFileSystem)
		}
		if !stdErrors.Is(err, cause) {
			t.Errorf("Cause should match wrapped cause: %v", cause)
		}
	})

	t.Run("InvalidOption", func(t *testing.T) {
		err := InvalidOption("mypkg", "module-members", "unknown category \"x\"")
		if err.Context["key"] != "module-members" {
			t.Errorf("Context[key] = %v, want module-members", err.Context["key"])
		}
	})
}

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)
	if got := a.ExitCodeFor(nil); got != 0 {
		t.Errorf("ExitCodeFor(nil) = %d, want 0", got)
	}
	if got := a.ExitCodeFor(UnknownOption("r", "k")); got != 7 {
		t.Errorf("ExitCodeFor(config) = %d, want 7", got)
	}
	if got := a.ExitCodeFor(fmt.Errorf("x")); got != 1 {
		t.Errorf("ExitCodeFor(plain) = %d, want 1", got)
	}
}
