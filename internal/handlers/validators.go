package handlers

import (
	"settlement-backend/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Registers the "chain" binding tag so request structs validate chain names
// against the supported set instead of hardcoding oneof lists.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("chain", func(fl validator.FieldLevel) bool {
			return models.Chain(fl.Field().String()).Valid()
		})
	}
}
