package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/idkeeper/internal/common"
	"github.com/dmitrijs2005/idkeeper/internal/server/models"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

// MaxPasswordLen bounds passwords in bytes before hashing.
const MaxPasswordLen = 256

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// UserInput carries the fields of a new identity.
type UserInput struct {
	UserName        string
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	Office          string
	PhoneNumber     string
	JobTitle        string
	LinkedIn        string
	Certificates    []string
	Roles           []models.Role
}

// UpdateInput describes a partial update. Nil fields are left unchanged.
// An empty UserName targets the caller.
type UpdateInput struct {
	UserName     string
	Email        *string
	FirstName    *string
	LastName     *string
	Office       *string
	PhoneNumber  *string
	JobTitle     *string
	LinkedIn     *string
	Certificates []string
	Roles        []models.Role
	Password     *string
}

// inputValidator checks request input and normalizes phone numbers to E.164.
type inputValidator struct {
	phoneRegion string
}

func newInputValidator(region string) *inputValidator {
	if region == "" {
		region = "US"
	}
	return &inputValidator{phoneRegion: strings.ToUpper(region)}
}

var validRole = validation.By(func(value interface{}) error {
	r, _ := value.(models.Role)
	if !r.Valid() {
		return fmt.Errorf("unknown role %q", r)
	}
	return nil
})

func (v *inputValidator) phoneRule() validation.Rule {
	return validation.By(func(value interface{}) error {
		var s string
		switch p := value.(type) {
		case string:
			s = p
		case *string:
			if p == nil {
				return nil
			}
			s = *p
		}
		_, err := v.normalizePhone(s)
		return err
	})
}

func (v *inputValidator) user(in *UserInput) error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.UserName, validation.Required, validation.Length(3, 64), validation.Match(usernamePattern)),
		validation.Field(&in.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&in.Password, validation.Required, validation.Length(1, MaxPasswordLen)),
		validation.Field(&in.FirstName, validation.Length(0, 100)),
		validation.Field(&in.LastName, validation.Length(0, 100)),
		validation.Field(&in.Office, validation.Length(0, 100)),
		validation.Field(&in.JobTitle, validation.Length(0, 100)),
		validation.Field(&in.PhoneNumber, v.phoneRule()),
		validation.Field(&in.LinkedIn, is.URL),
		validation.Field(&in.Certificates, validation.Each(validation.Required, validation.Length(1, 200))),
		validation.Field(&in.Roles, validation.Each(validRole)),
	)
	return validationErr(err)
}

func (v *inputValidator) update(in *UpdateInput) error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.UserName, validation.Length(3, 64)),
		validation.Field(&in.Email, validation.NilOrNotEmpty, validation.Length(3, 254), is.Email),
		validation.Field(&in.Password, validation.NilOrNotEmpty, validation.Length(1, MaxPasswordLen)),
		validation.Field(&in.FirstName, validation.Length(0, 100)),
		validation.Field(&in.LastName, validation.Length(0, 100)),
		validation.Field(&in.Office, validation.Length(0, 100)),
		validation.Field(&in.JobTitle, validation.Length(0, 100)),
		validation.Field(&in.PhoneNumber, v.phoneRule()),
		validation.Field(&in.LinkedIn, is.URL),
		validation.Field(&in.Certificates, validation.Each(validation.Required, validation.Length(1, 200))),
		validation.Field(&in.Roles, validation.Each(validRole)),
	)
	return validationErr(err)
}

func (v *inputValidator) password(pw string) error {
	return validationErr(validation.Validate(pw, validation.Required, validation.Length(1, MaxPasswordLen)))
}

// normalizePhone returns raw in E.164 form. Empty input stays empty.
func (v *inputValidator) normalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(raw, v.phoneRegion)
	if err != nil {
		return "", errors.New("must be a valid phone number")
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("must be a valid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func validationErr(err error) error {
	if err == nil {
		return nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return internal.InternalError()
	}
	return fmt.Errorf("%w: %s", common.ErrValidation, err.Error())
}
