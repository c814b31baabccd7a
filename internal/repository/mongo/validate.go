package mongo

import (
	"fmt"

	"gymez/checkin-api/internal/repository"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// checkRecord validates a decoded document before it leaves the repository.
func checkRecord(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrInvalidRecord, err)
	}
	return nil
}
