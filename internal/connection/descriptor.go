package connection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/sqlconnector/internal/apperr"
	"github.com/DjordjeVuckovic/sqlconnector/internal/storage"
)

// Fields are the discrete parts a descriptor can be built from.
type Fields struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// directiveChars would let a field value start a new key=value pair in
// an ADO-style connection string.
const directiveChars = ";={}"

// Validate rejects values that could smuggle extra connection-string
// directives. The password is exempt; Template quotes it instead.
func (f Fields) Validate() error {
	if strings.TrimSpace(f.Host) == "" {
		return errors.New("host is required")
	}
	for name, v := range map[string]string{"host": f.Host, "database": f.Database, "user": f.User} {
		if strings.ContainsAny(v, directiveChars) {
			return fmt.Errorf("%s contains a reserved character (one of %q)", name, directiveChars)
		}
	}
	if f.Port != "" {
		port, err := strconv.Atoi(f.Port)
		if err != nil {
			return errors.New("port must be a number")
		}
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
	}
	return nil
}

// PortOr returns the numeric port, or def when none was given.
func (f Fields) PortOr(def int) int {
	port, err := strconv.Atoi(f.Port)
	if err != nil || port <= 0 {
		return def
	}
	return port
}

// Template renders the SQL Server style connection string
//
//	Server=<host>,<port>;Database=<database>;Uid=<user>;Pwd=<password>;
//
// Plain values come out byte-for-byte as the template. A password holding a
// directive character or a quote is wrapped in braces with '}' doubled.
func (f Fields) Template() string {
	return fmt.Sprintf("Server=%s,%s;Database=%s;Uid=%s;Pwd=%s;",
		f.Host, f.Port, f.Database, f.User, quoteValue(f.Password))
}

func quoteValue(v string) string {
	if !strings.ContainsAny(v, directiveChars+`'"`) && strings.TrimSpace(v) == v {
		return v
	}
	return "{" + strings.ReplaceAll(v, "}", "}}") + "}"
}

// DSNFormatter is implemented by drivers whose DSN grammar differs from the
// SQL Server template.
type DSNFormatter interface {
	FormatDSN(f Fields) (string, error)
}

// Descriptor identifies how to reach a database: either a raw connection
// string used verbatim, or validated Fields. The zero value is invalid.
type Descriptor struct {
	raw    string
	fields *Fields
}

// FromString wraps a connection string. It is passed to the driver as is;
// its contents are the caller's responsibility.
func FromString(s string) Descriptor {
	return Descriptor{raw: s}
}

func FromFields(f Fields) (Descriptor, error) {
	if err := f.Validate(); err != nil {
		return Descriptor{}, apperr.NewValidationWrap("invalid connection fields", err)
	}
	return Descriptor{fields: &f}, nil
}

func (d Descriptor) IsZero() bool {
	return d.raw == "" && d.fields == nil
}

// Fields returns a copy of the discrete fields, if the descriptor has them.
func (d Descriptor) Fields() (Fields, bool) {
	if d.fields == nil {
		return Fields{}, false
	}
	return *d.fields, true
}

// String renders the descriptor in the SQL Server template form.
func (d Descriptor) String() string {
	if d.fields != nil {
		return d.fields.Template()
	}
	return d.raw
}

// Redacted is String with the password masked, for logs.
func (d Descriptor) Redacted() string {
	if d.fields != nil {
		f := *d.fields
		if f.Password != "" {
			f.Password = "****"
		}
		return f.Template()
	}
	return redactRaw(d.raw)
}

// Resolve produces the DSN handed to drv.Open.
func (d Descriptor) Resolve(drv storage.Driver) (string, error) {
	if d.IsZero() {
		return "", errors.New("empty connection descriptor")
	}
	if d.fields == nil {
		return d.raw, nil
	}
	if f, ok := drv.(DSNFormatter); ok {
		return f.FormatDSN(*d.fields)
	}
	return d.fields.Template(), nil
}

func redactRaw(raw string) string {
	parts := strings.Split(raw, ";")
	for i, p := range parts {
		k, _, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "pwd", "password":
			parts[i] = k + "=****"
		}
	}
	return strings.Join(parts, ";")
}
