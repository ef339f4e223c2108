package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"bookbridge-backend/internal/domain"
)

func TestValidators(t *testing.T) {
	v := Violations{}
	Required("name", "  ", v)
	Length("customerName", "A", 2, 50, v)
	Digits("customerContact", "98765-4321", 10, v)
	Email("email", "not-an-email", v)
	Positive("quantity", 0, v)
	NonNegative("stock", -1, v)

	assert.Equal(t, "required", v["name"])
	assert.Equal(t, "length_out_of_range", v["customerName"])
	assert.Equal(t, "must_be_digits", v["customerContact"])
	assert.Equal(t, "invalid_email", v["email"])
	assert.Equal(t, "must_be_positive", v["quantity"])
	assert.Equal(t, "must_not_be_negative", v["stock"])

	err := v.Err("invalid order")
	assert.True(t, errors.Is(err, domain.ErrValidation))
	var de *domain.Error
	assert.True(t, errors.As(err, &de))
	assert.Len(t, de.Fields, 6)
}

func TestValidators_Pass(t *testing.T) {
	v := Violations{}
	Length("customerName", "  Asha Rao  ", 2, 50, v)
	Digits("customerContact", "9876543210", 10, v)
	Email("email", "asha@campus.edu", v)
	Positive("quantity", 3, v)
	assert.True(t, v.Empty())
	assert.NoError(t, v.Err("ok"))
}
