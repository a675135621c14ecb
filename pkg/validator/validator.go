package validator

import (
	"strings"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

const maxMessageLength = 4000

func ValidateMessageContent(content string) ValidationErrors {
	errs := make(ValidationErrors)

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		errs.Add("content", "Message content is required")
	} else if len(trimmed) > maxMessageLength {
		errs.Add("content", "Message is too long")
	}

	return errs
}

func ValidateConversationType(t string) ValidationErrors {
	errs := make(ValidationErrors)

	if t != "" && t != "formateur" && t != "apprenant" && t != "groupe" {
		errs.Add("type", "Conversation type must be formateur, apprenant, or groupe")
	}

	return errs
}
