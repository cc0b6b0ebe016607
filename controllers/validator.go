package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// RequestValidator wraps the struct tag validator shared by all handlers.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// BindJSON decodes the body into dst and runs tag validation on it.
func (rv *RequestValidator) BindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return rv.Struct(dst)
}

// Struct validates dst and flattens field errors into one readable message.
func (rv *RequestValidator) Struct(dst interface{}) error {
	err := rv.validate.Struct(dst)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// parsePaginationParams reads page and page_size, clamping to sane bounds.
func parsePaginationParams(c *gin.Context) (int, int) {
	page, size := 1, defaultPageSize
	if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize))); err == nil && s > 0 {
		if s > maxPageSize {
			s = maxPageSize
		}
		size = s
	}
	return page, size
}
