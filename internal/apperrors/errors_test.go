package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestValidation(t *testing.T) {
	t.Parallel()
	err := Validation("source_image", "source image is required")

	if !errors.Is(err, ErrValidation) {
		t.Error("expected error to match ErrValidation")
	}
	if err.Error() != "source_image: source image is required" {
		t.Errorf("expected message to carry the field, got %q", err.Error())
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected error to be *Error")
	}
	if appErr.Field != "source_image" {
		t.Errorf("expected field 'source_image', got %q", appErr.Field)
	}
}

func TestUnknownMethod(t *testing.T) {
	t.Parallel()
	err := UnknownMethod("cnn", []string{"fast", "i2i_gan", "opencv_baseline", "pytorch_unet"})

	if !errors.Is(err, ErrUnknownMethod) {
		t.Error("expected error to match ErrUnknownMethod")
	}
	if !strings.Contains(err.Error(), `unknown method "cnn"`) {
		t.Errorf("expected message to name the requested method, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "pytorch_unet") {
		t.Errorf("expected message to list valid names, got %q", err.Error())
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected error to be *Error")
	}
	if appErr.Method != "cnn" {
		t.Errorf("expected method 'cnn', got %q", appErr.Method)
	}
	if len(appErr.Known) != 4 {
		t.Errorf("expected 4 known names, got %d", len(appErr.Known))
	}
}

func TestInternal(t *testing.T) {
	t.Parallel()
	cause := fmt.Errorf("docker daemon unavailable")
	err := Internal("worker.invoke", cause)

	if !errors.Is(err, ErrInternal) {
		t.Error("expected error to match ErrInternal")
	}
	if err.Error() != "worker.invoke: docker daemon unavailable" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected error to be *Error")
	}
	if appErr.Op != "worker.invoke" {
		t.Errorf("expected op 'worker.invoke', got %q", appErr.Op)
	}
	if appErr.Cause != cause {
		t.Error("expected cause to be preserved")
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", Validation("id", "required"), http.StatusBadRequest},
		{"unknown method", UnknownMethod("x", nil), http.StatusNotFound},
		{"internal", Internal("op", fmt.Errorf("fail")), http.StatusInternalServerError},
		{"sentinel validation", ErrValidation, http.StatusBadRequest},
		{"sentinel unknown method", ErrUnknownMethod, http.StatusNotFound},
		{"sentinel internal", ErrInternal, http.StatusInternalServerError},
		{"wrapped validation", fmt.Errorf("wrap: %w", Validation("f", "m")), http.StatusBadRequest},
		{"unknown error", fmt.Errorf("unknown"), http.StatusInternalServerError},
		{"nil error", nil, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := HTTPStatus(tt.err)
			if got != tt.expected {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestErrorsIsWithWrapping(t *testing.T) {
	t.Parallel()
	// Ensure errors.Is works through fmt.Errorf wrapping
	original := UnknownMethod("cnn", []string{"fast"})
	wrapped := fmt.Errorf("service error: %w", original)
	doubleWrapped := fmt.Errorf("handler error: %w", wrapped)

	if !errors.Is(doubleWrapped, ErrUnknownMethod) {
		t.Error("expected errors.Is to find ErrUnknownMethod through multiple wraps")
	}
}
