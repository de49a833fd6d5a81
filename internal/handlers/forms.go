package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
)

const invalidData = "Dados inválidos."

// validationMessage validates v and returns the message for its first
// failing field, or "" when v is valid.
func (h *Handlers) validationMessage(v any, messages map[string]string) string {
	err := h.validate.Struct(v)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := messages[verrs[0].Field()]; ok {
			return msg
		}
	}
	return invalidData
}

// pathID parses the {id} wildcard; ok is false for anything but a positive integer.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
