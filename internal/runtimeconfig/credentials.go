package runtimeconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/goliatone/go-wpsync/internal/syncerr"
	"github.com/goliatone/go-wpsync/internal/wordpress"
)

const credentialsSchemaURL = "credentials.schema.json"

// credentialsSchema describes config/wordpress.json. Unknown keys are
// allowed so the file can carry notes for humans.
const credentialsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["baseURL", "username", "applicationPassword"],
  "properties": {
    "baseURL": {"type": "string", "minLength": 1},
    "username": {"type": "string", "minLength": 1},
    "applicationPassword": {"type": "string", "minLength": 1}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// CredentialsFile is the decoded credentials document.
type CredentialsFile struct {
	BaseURL             string `json:"baseURL"`
	Username            string `json:"username"`
	ApplicationPassword string `json:"applicationPassword"`
}

// Validate checks the decoded values beyond what the schema can express.
func (c CredentialsFile) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(func(value any) error {
			raw, _ := value.(string)
			parsed, err := url.Parse(strings.TrimSpace(raw))
			if err != nil || !parsed.IsAbs() || parsed.Host == "" {
				return validation.NewError("wpsync.credentials.base_url_absolute", "must be an absolute http(s) URL")
			}
			if parsed.Scheme != "http" && parsed.Scheme != "https" {
				return validation.NewError("wpsync.credentials.base_url_scheme", "must use http or https")
			}
			return nil
		})),
		validation.Field(&c.Username, validation.Required),
		validation.Field(&c.ApplicationPassword, validation.Required),
	)
}

// Credentials converts the file into client credentials.
func (c CredentialsFile) Credentials() wordpress.Credentials {
	return wordpress.Credentials{
		BaseURL:             strings.TrimSpace(c.BaseURL),
		Username:            c.Username,
		ApplicationPassword: c.ApplicationPassword,
	}
}

// LoadCredentials reads and validates the credentials file at path. A
// missing file is a fatal CONFIG_NOT_FOUND error and any decoding or
// validation problem a fatal CONFIG_INVALID error.
func LoadCredentials(path string) (wordpress.Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return wordpress.Credentials{}, syncerr.Fatal(err, goerrors.CategoryNotFound, syncerr.TextCodeConfigNotFound,
				fmt.Sprintf("credentials file not found: %s", path))
		}
		return wordpress.Credentials{}, syncerr.Fatal(err, goerrors.CategoryInternal, syncerr.TextCodeConfigNotFound,
			fmt.Sprintf("read credentials file: %s", path))
	}

	file, err := ParseCredentials(data)
	if err != nil {
		return wordpress.Credentials{}, syncerr.Fatal(err, goerrors.CategoryValidation, syncerr.TextCodeConfigInvalid,
			fmt.Sprintf("invalid credentials file: %s", path))
	}
	return file.Credentials(), nil
}

// ParseCredentials decodes data, checks it against the credentials schema and
// validates the result.
func ParseCredentials(data []byte) (CredentialsFile, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return CredentialsFile{}, fmt.Errorf("decode credentials: %w", err)
	}

	schema, err := credentialsSchemaValidator()
	if err != nil {
		return CredentialsFile{}, err
	}
	if err := schema.Validate(doc); err != nil {
		return CredentialsFile{}, fmt.Errorf("credentials schema: %s", describeSchemaError(err))
	}

	var file CredentialsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return CredentialsFile{}, fmt.Errorf("decode credentials: %w", err)
	}
	if err := file.Validate(); err != nil {
		return CredentialsFile{}, err
	}
	return file, nil
}

func credentialsSchemaValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(credentialsSchemaURL, bytes.NewReader([]byte(credentialsSchema))); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile(credentialsSchemaURL)
	})
	return compiledSchema, schemaErr
}

// describeSchemaError flattens the leaf causes of a schema failure into one
// line.
func describeSchemaError(err error) string {
	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return err.Error()
	}

	var parts []string
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if len(node.Causes) == 0 {
			location := node.InstanceLocation
			if location == "" {
				location = "/"
			}
			parts = append(parts, location+": "+node.Message)
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(validationErr)
	return strings.Join(parts, "; ")
}
