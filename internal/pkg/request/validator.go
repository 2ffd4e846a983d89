package request

import (
	"errors"
	"regexp"

	cErr "mme/internal/pkg/error"

	"github.com/go-playground/validator/v10"
)

// Validator is implemented by request DTOs that provide their own messages,
// keyed "<Field>.<tag>".
type Validator interface {
	GetMessages() ValidatorMessages
}

type ValidatorMessages map[string]string

var reg = regexp.MustCompile(`\[\d+\]`)

// GetError maps a binding error to the first matching custom message.
func GetError(request interface{}, err error) *cErr.Error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		v, isValidator := request.(Validator)

		var errorMessages []string
		for _, fe := range errs {
			if isValidator {
				field := reg.ReplaceAllString(fe.Field(), ".*")
				if message, exist := v.GetMessages()[field+"."+fe.Tag()]; exist {
					errorMessages = append(errorMessages, message)
					continue
				}
			}
			errorMessages = append(errorMessages, fe.Error())
		}
		if len(errorMessages) > 0 {
			return cErr.ValidateErr(errorMessages[0])
		}
	}

	return cErr.ValidateErr("Parameter error")
}
