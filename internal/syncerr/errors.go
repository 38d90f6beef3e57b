// Package syncerr separates failures that abort a sync run from failures the
// run absorbs and reports. Both kinds are go-errors values; the severity
// distinguishes them so callers can branch without string matching.
package syncerr

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeArticleNotFound   = "ARTICLE_NOT_FOUND"
	TextCodeMalformedContent  = "MALFORMED_CONTENT"
	TextCodeArticleLocked     = "ARTICLE_LOCKED"
	TextCodeWriteFailed       = "ARTICLE_WRITE_FAILED"
	TextCodeConfigNotFound    = "CONFIG_NOT_FOUND"
	TextCodeConfigInvalid     = "CONFIG_INVALID"
	TextCodePostSyncFailed    = "POST_SYNC_FAILED"
	TextCodeMediaLookupFailed = "MEDIA_LOOKUP_FAILED"
	TextCodeMediaUploadFailed = "MEDIA_UPLOAD_FAILED"
	TextCodeMediaDeleteFailed = "MEDIA_DELETE_FAILED"
	TextCodeIndexWriteFailed  = "INDEX_WRITE_FAILED"
	TextCodeRenderFailed      = "RENDER_FAILED"
)

// Fatal builds an error that must terminate the current run. A nil source
// yields a fresh error carrying only the message.
func Fatal(source error, category goerrors.Category, textCode, message string) *goerrors.Error {
	return build(source, category, textCode, message).WithSeverity(goerrors.SeverityFatal)
}

// Recoverable builds an error the run logs and then continues past.
func Recoverable(source error, category goerrors.Category, textCode, message string) *goerrors.Error {
	return build(source, category, textCode, message).WithSeverity(goerrors.SeverityWarning)
}

// IsFatal reports whether err, or any go-errors value it wraps, is fatal.
// Errors that were never classified are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var classified *goerrors.Error
	if !goerrors.As(err, &classified) {
		return true
	}
	return classified.GetSeverity() >= goerrors.SeverityError
}

// IsRecoverable reports whether err was classified as recoverable.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var classified *goerrors.Error
	if !goerrors.As(err, &classified) {
		return false
	}
	return classified.GetSeverity() <= goerrors.SeverityWarning
}

// HasTextCode reports whether err carries the supplied text code.
func HasTextCode(err error, textCode string) bool {
	var classified *goerrors.Error
	if !goerrors.As(err, &classified) {
		return false
	}
	return classified.TextCode == textCode
}

// TextCode returns the text code carried by err, or "" when it has none.
func TextCode(err error) string {
	var classified *goerrors.Error
	if !goerrors.As(err, &classified) {
		return ""
	}
	return classified.TextCode
}

func build(source error, category goerrors.Category, textCode, message string) *goerrors.Error {
	var err *goerrors.Error
	if source == nil {
		err = goerrors.New(message, category)
	} else {
		err = goerrors.Wrap(source, category, message)
	}
	if textCode != "" {
		err = err.WithTextCode(textCode)
	}
	return err
}
