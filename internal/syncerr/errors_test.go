package syncerr

import (
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestFatalCarriesSeverityAndCode(t *testing.T) {
	source := errors.New("unexpected status 500")
	err := Fatal(source, goerrors.CategoryExternal, TextCodePostSyncFailed, "post sync failed")

	if !IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if IsRecoverable(err) {
		t.Fatalf("fatal error must not be recoverable")
	}
	if !HasTextCode(err, TextCodePostSyncFailed) {
		t.Fatalf("expected text code %s, got %v", TextCodePostSyncFailed, err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryExternal) {
		t.Fatalf("expected external category, got %v", err)
	}
	if !errors.Is(err, source) {
		t.Fatalf("expected source to be reachable through Unwrap")
	}
}

func TestRecoverableIsNotFatal(t *testing.T) {
	err := Recoverable(nil, goerrors.CategoryExternal, TextCodeMediaUploadFailed, "upload rejected")
	if !IsRecoverable(err) {
		t.Fatalf("expected recoverable error")
	}
	if IsFatal(err) {
		t.Fatalf("recoverable error reported as fatal")
	}
}

func TestUnclassifiedErrorsAreFatal(t *testing.T) {
	err := errors.New("plain")
	if !IsFatal(err) {
		t.Fatalf("expected unclassified error to be fatal")
	}
	if IsRecoverable(err) {
		t.Fatalf("expected unclassified error not to be recoverable")
	}
	if IsFatal(nil) || IsRecoverable(nil) {
		t.Fatalf("nil error must be neither fatal nor recoverable")
	}
}
