package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/gradelens/internal/filter"
	"github.com/ppiankov/gradelens/internal/ingest"
	"github.com/ppiankov/gradelens/internal/validate"
)

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind,omitempty"`
	Column  string   `json:"column,omitempty"`
	Rows    []int    `json:"rows,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

// respondError maps the error taxonomy onto HTTP statuses: unreadable
// input and missing columns are 400, bad values are 422.
func respondError(c *gin.Context, err error) {
	var (
		formatErr   *ingest.FileFormatError
		schemaErr   *validate.SchemaError
		coercionErr *validate.TypeCoercionError
		invalidErr  *validate.ValidationError
		tooLarge    *http.MaxBytesError
	)

	switch {
	case errors.As(err, &tooLarge):
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error(), Kind: "too_large"})
	case errors.As(err, &formatErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "file_format"})
	case errors.As(err, &schemaErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "schema", Missing: schemaErr.Missing})
	case errors.As(err, &coercionErr):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(), Kind: "type_coercion", Column: coercionErr.Column, Rows: []int{coercionErr.Row},
		})
	case errors.As(err, &invalidErr):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(), Kind: "validation", Column: invalidErr.Column, Rows: invalidErr.Rows,
		})
	case errors.Is(err, filter.ErrInvalidFilter):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Kind: "filter"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}
