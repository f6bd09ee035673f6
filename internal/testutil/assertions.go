package testutil

import (
	"errors"
	"slices"
	"testing"
	"time"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/store"
)

// AssertAppError checks that err is an *AppError with the expected kind and code.
func AssertAppError(t *testing.T, err error, kind apperrors.Kind, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Kind != kind || appErr.Code != expectedCode {
		t.Errorf("expected error %s/%s, got %s/%s (message: %s)", kind, expectedCode, appErr.Kind, appErr.Code, appErr.Message)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertIDs fails the test unless got and want hold the same ids, ignoring order.
func AssertIDs(t *testing.T, got, want []int64) {
	t.Helper()

	g := slices.Clone(got)
	w := slices.Clone(want)
	slices.Sort(g)
	slices.Sort(w)
	if !slices.Equal(g, w) {
		t.Errorf("expected ids %v, got %v", w, g)
	}
}

// Await reads live updates until match accepts one, failing after two seconds.
func Await[T any](t *testing.T, live *store.Live[T], match func(T) bool) T {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-live.Updates():
			if !ok {
				t.Fatal("live query closed before a matching update")
			}
			if match(v) {
				return v
			}
		case <-timeout:
			t.Fatal("timed out waiting for live update")
		}
	}
}
