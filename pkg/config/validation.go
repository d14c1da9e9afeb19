package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/netsspi/pkg/protocol"
	"github.com/marmos91/netsspi/pkg/transport"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against its struct tags and the cross-field rules
// tags cannot express. It does not modify cfg.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	kind, err := transport.ParseKind(cfg.Transport.Kind)
	if err != nil {
		return err
	}
	if !transport.Available(kind) {
		return fmt.Errorf("transport.kind: %s is not available on this platform", kind)
	}
	if cfg.Transport.MaxMessageSize > 0 && cfg.Transport.MaxMessageSize.Int() < protocol.ResponseHeaderSize {
		return fmt.Errorf("transport.max_message_size: %s is smaller than a message header", cfg.Transport.MaxMessageSize)
	}
	return nil
}

// formatValidationError flattens validator errors into one line per field,
// naming the failed tag.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		tag := fe.Tag()
		if p := fe.Param(); p != "" {
			tag += "=" + p
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed on %q (value %v)", fe.Namespace(), tag, redact(fe)))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// redact hides password and hash values in validation messages.
func redact(fe validator.FieldError) any {
	switch fe.Field() {
	case "Password", "NTHash":
		return "<redacted>"
	}
	return fe.Value()
}
