// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error. Codes read
// <area>.<operation>.<reason>; the reason segment drives classification.
type Code string

const (
	CodeStoreRecordNotFound     Code = "store.record.get.not_found"
	CodeStoreRecordConflict     Code = "store.record.insert.conflict"
	CodeStoreRecordInvalid      Code = "store.record.query.invalid_input"
	CodeStoreDatabaseFailure    Code = "store.database.failure"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"

	CodeBlobWriteFailure       Code = "blob.write.failure"
	CodeBlobReadFailure        Code = "blob.read.failure"
	CodeBlobPathInvalid        Code = "blob.path.invalid"
	CodeBlobNotFound           Code = "blob.object.not_found"
	CodeBlobBackendUnsupported Code = "blob.backend.unsupported"

	CodeIngestInputInvalid      Code = "ingest.input.invalid"
	CodeIngestStoreReadFailure  Code = "ingest.store.read_failure"
	CodeIngestStoreWriteFailure Code = "ingest.store.write_failure"

	CodeCommandStoreReadFailure  Code = "command.store.read_failure"
	CodeCommandStoreWriteFailure Code = "command.store.write_failure"

	CodeChannelFetchFailure        Code = "channel.fetch.failure"
	CodeChannelReplyFailure        Code = "channel.reply.upstream.failure"
	CodeChannelSignatureInvalid    Code = "channel.signature.invalid"
	CodeChannelPayloadInvalid      Code = "channel.payload.invalid_format"
	CodeChannelNotFound            Code = "channel.router.not_found"
	CodeChannelTokenInvalid        Code = "channel.token.invalid"
	CodeChannelTokenCheckFailed    Code = "channel.token.check.failure"
	CodeChannelContentTooLarge     Code = "channel.content.invalid"
	CodeChannelRateLimitExceeded   Code = "channel.ratelimit.exceeded"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"
	CodeConfigAlreadyExists        Code = "config.write.conflict"

	CodeSecretNotFound       Code = "secret.keyring.not_found"
	CodeSecretStoreFailure   Code = "secret.keyring.store.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"
	CodeSecretInvalidInput   Code = "secret.input.invalid_input"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerEntityNotFound  Code = "server.entity.not_found"
	CodeServerConfigInvalid   Code = "server.config.invalid"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"
	CodeServerRateLimited     Code = "server.ratelimit.exceeded"

	CodeCLIServerNotRunning Code = "cli.server.not_running"
	CodeCLIRequestFailure   Code = "cli.request.failure"
	CodeCLIResponseInvalid  Code = "cli.response.invalid"
	CodeCLISetupFailure     Code = "cli.setup.failure"
	CodeCLIInputInvalid     Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldRecordID(value string) Attr {
	return Field("record_id", value)
}

func FieldContentHash(value string) Attr {
	return Field("content_hash", value)
}

func FieldBlobPath(value string) Attr {
	return Field("blob_path", value)
}

func FieldMessageID(value string) Attr {
	return Field("message_id", value)
}

func FieldChannel(value string) Attr {
	return Field("channel", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain, keeping its code.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// Area returns the leading segment of the error's code ("ingest", "blob").
func Area(err error) string {
	code := string(CodeOf(err))
	if idx := strings.Index(code, "."); idx > 0 {
		return code[:idx]
	}
	return code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsConflict(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsRateLimited(err error) bool {
	return reason(CodeOf(err)) == "exceeded"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsConflict(err):
		return http.StatusConflict
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsRateLimited(err):
		return http.StatusTooManyRequests
	case IsUpstreamFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
