package clone

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/melih-ucgun/clonectl/internal/crypto"
)

// ErrInvalidOptions is returned when Options fail validation.
var ErrInvalidOptions = errors.New("invalid options")

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("aeskey", validateAESKey)
}

// validateAESKey accepts keys ParseKey would accept.
func validateAESKey(fl validator.FieldLevel) bool {
	_, err := crypto.ParseKey(fl.Field().String())
	return err == nil
}

// Options configure one save or load run.
type Options struct {
	// Path is the snapshot document.
	Path          string   `validate:"required"`
	EncryptionKey string   `validate:"omitempty,aeskey"`
	Recipients    []string `validate:"dive,startswith=age1"`
	// Identity holds age private keys, one per line.
	Identity string

	IncludeBIOS    bool
	IncludeStorage bool

	OverwriteUnique   bool
	ResetBIOSDefaults bool
	DryRun            bool
	// AutoConfirm answers yes to every question.
	AutoConfirm bool
	Interactive bool

	// Username is the identity the apply runs as, used by privilege checks.
	Username            string
	PlaceholderPassword string `validate:"required"`
	SSLCertPath         string
	SSOCertPath         string

	ResetInterval    time.Duration `validate:"gt=0"`
	ReconnectTimeout time.Duration `validate:"gtefield=ResetInterval"`
	PostTimeout      time.Duration `validate:"gtefield=ResetInterval"`
}

// DefaultOptions returns options with the default waits.
func DefaultOptions() Options {
	return Options{
		Path:                "clone.json",
		PlaceholderPassword: "changeme",
		ResetInterval:       10 * time.Second,
		ReconnectTimeout:    10 * time.Minute,
		PostTimeout:         20 * time.Minute,
	}
}

// Validate checks field constraints.
func (o *Options) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	if len(verrs) == 1 && verrs[0].Tag() == "aeskey" {
		return fmt.Errorf("%w: %s", crypto.ErrKeySize, msgs[0])
	}
	return fmt.Errorf("%w: %s", ErrInvalidOptions, strings.Join(msgs, ", "))
}

func (o *Options) key() []byte {
	if o.EncryptionKey == "" {
		return nil
	}
	key, _ := crypto.ParseKey(o.EncryptionKey)
	return key
}
