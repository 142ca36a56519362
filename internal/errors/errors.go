// Package errors holds the typed errors shared by vaultnorm's packages.
// Every error carries a kind, so callers branch on what went wrong rather
// than on message text.
package errors

import (
	"errors"
	"fmt"
)

// Re-exported from the standard library so callers need one import.
var (
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
)

// Sentinels for errors.Is. A FileError matches them by kind, whatever its
// path.
var (
	ErrFileNotFound    = NewFileError("file not found", "", FileNotFound, nil)
	ErrDestinationUsed = NewFileError("destination already exists", "", DestinationExists, nil)
)

// ErrorKind classifies an error.
type ErrorKind int

const (
	Unknown ErrorKind = iota

	FileNotFound
	FileAccessDenied
	InvalidPath
	DestinationExists
	FileOperationFailed

	InvalidConfig
	ConfigNotFound

	InvalidRule
	RuleNotFound
)

var kindNames = map[ErrorKind]string{
	FileNotFound:        "file_not_found",
	FileAccessDenied:    "file_access_denied",
	InvalidPath:         "invalid_path",
	DestinationExists:   "destination_exists",
	FileOperationFailed: "file_operation_failed",
	InvalidConfig:       "invalid_config",
	ConfigNotFound:      "config_not_found",
	InvalidRule:         "invalid_rule",
	RuleNotFound:        "rule_not_found",
}

// String returns the snake_case name used in structured logs.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ApplicationError is the base of every vaultnorm error.
type ApplicationError struct {
	msg     string
	subject string
	err     error
	kind    ErrorKind
}

func (e *ApplicationError) Error() string {
	msg := e.msg
	if e.subject != "" {
		msg += ": " + e.subject
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %v", msg, e.err)
	}
	return msg
}

func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns what went wrong.
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// FileError is a storage failure on a vault path.
type FileError struct {
	ApplicationError
}

// NewFileError creates a FileError about path.
func NewFileError(msg, path string, kind ErrorKind, err error) *FileError {
	return &FileError{ApplicationError{msg: msg, subject: path, err: err, kind: kind}}
}

// Path returns the vault path the error is about.
func (e *FileError) Path() string {
	return e.subject
}

// Is matches sentinel file errors by kind, so a FileError carrying a path
// still satisfies errors.Is(err, ErrFileNotFound).
func (e *FileError) Is(target error) bool {
	t, ok := target.(*FileError)
	if !ok {
		return false
	}
	return t.subject == "" && t.err == nil && t.kind == e.kind
}

// ConfigError is a problem with the settings or the settings file.
type ConfigError struct {
	ApplicationError
}

// NewConfigError creates a ConfigError about the setting or file param.
func NewConfigError(msg, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{ApplicationError{msg: msg, subject: param, err: err, kind: kind}}
}

// Param returns the setting or file the error is about.
func (e *ConfigError) Param() string {
	return e.subject
}

// RuleError is a problem with one renaming rule.
type RuleError struct {
	ApplicationError
}

// NewRuleError creates a RuleError about the rule called ruleName.
func NewRuleError(msg, ruleName string, kind ErrorKind, err error) *RuleError {
	return &RuleError{ApplicationError{msg: msg, subject: ruleName, err: err, kind: kind}}
}

// RuleName returns the name of the rule the error is about.
func (e *RuleError) RuleName() string {
	return e.subject
}

// New creates an error of unknown kind.
func New(msg string) error {
	return &ApplicationError{msg: msg}
}

// Newf is New with formatting.
func Newf(format string, args ...interface{}) error {
	return &ApplicationError{msg: fmt.Sprintf(format, args...)}
}

// Wrap adds context to err. It returns nil for a nil err.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{msg: msg, err: err}
}

// Wrapf is Wrap with formatting.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{msg: fmt.Sprintf(format, args...), err: err}
}

// KindOf returns the first known kind in err's chain. Wrappers added by
// Wrap have no kind of their own and are looked through.
func KindOf(err error) ErrorKind {
	for err != nil {
		if k, ok := err.(interface{ Kind() ErrorKind }); ok && k.Kind() != Unknown {
			return k.Kind()
		}
		err = errors.Unwrap(err)
	}
	return Unknown
}

// IsFileNotFound reports whether err means the item does not exist.
func IsFileNotFound(err error) bool {
	return errors.Is(err, ErrFileNotFound)
}

// IsDestinationExists reports whether err means the target path is taken.
func IsDestinationExists(err error) bool {
	return errors.Is(err, ErrDestinationUsed)
}

// IsInvalidConfig reports whether err is an invalid settings error.
func IsInvalidConfig(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr) && configErr.kind == InvalidConfig
}

// IsInvalidRule reports whether err is an invalid rule error.
func IsInvalidRule(err error) bool {
	var ruleErr *RuleError
	return errors.As(err, &ruleErr) && ruleErr.kind == InvalidRule
}
