package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

const maxJSONBodyBytes = 8 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeValidate reads one JSON document into body and runs its validate tags.
func decodeValidate(w http.ResponseWriter, r *http.Request, body any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err := dec.Decode(body); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.WrapError(domain.ErrInvalidInput, "decode body", errors.New("request body is required"))
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode body", fmt.Errorf("invalid json: %w", err))
	}
	if err := validate.Struct(body); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return domain.WrapError(domain.ErrInvalidInput, "validate body",
				fmt.Errorf("field %s failed %q validation", fe.Namespace(), fe.Tag()))
		}
		return domain.WrapError(domain.ErrInvalidInput, "validate body", err)
	}
	return nil
}
