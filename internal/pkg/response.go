package pkg

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/saleads/internal/domain"
)

// Response is the envelope of every JSON answer: code mirrors the HTTP
// status and data is null on errors.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ValidationErrorResponse replaces data with one message per rejected field.
type ValidationErrorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func reply(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Response{Code: status, Message: message, Data: data})
}

func Success(c *gin.Context, data any) { reply(c, http.StatusOK, "success", data) }

func Created(c *gin.Context, message string, data any) {
	reply(c, http.StatusCreated, message, data)
}

// List answers with one page of results, e.g. a pagination.Pagination.
func List(c *gin.Context, page any) { reply(c, http.StatusOK, "success", page) }

// Error answers with the status of err's AppError code. The message of a
// non-AppError is never shown.
func Error(c *gin.Context, err error) {
	msg := "internal error"
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	reply(c, domain.HTTPStatusCode(err), msg, nil)
}

// ValidationError reports binding failures by lowercased struct field name.
func ValidationError(c *gin.Context, err error) {
	rejectInput(c, err, nil)
}

// BindAndValidate binds the body into obj. On failure it has already
// answered 400, naming fields by their json tags, and returns false:
//
//	if !pkg.BindAndValidate(c, &req) { return }
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		rejectInput(c, err, obj)
		return false
	}
	return true
}

func rejectInput(c *gin.Context, err error, obj any) {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		// decoder errors stay out of the response
		reply(c, http.StatusBadRequest, "bad request", nil)
		return
	}

	names := jsonFieldNames(obj)
	out := make(map[string]string, len(fields))
	for _, fe := range fields {
		name, ok := names[fe.StructField()]
		if !ok {
			name = strings.ToLower(fe.Field())
		}
		out[name] = fieldMessage(fe)
	}
	c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Code:    http.StatusBadRequest,
		Message: "validation error",
		Errors:  out,
	})
}

// fieldMessage describes a failed validation rule to the client.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		return "Must be at least " + withUnit(fe)
	case "max":
		return "Must be at most " + withUnit(fe)
	}
	if fe.Param() == "" {
		return "Failed rule " + fe.Tag()
	}
	return "Failed rule " + fe.Tag() + "=" + fe.Param()
}

// withUnit appends what a length limit counts; numeric limits have no unit.
func withUnit(fe validator.FieldError) string {
	switch fe.Kind() {
	case reflect.String:
		return fe.Param() + " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return fe.Param() + " items"
	default:
		return fe.Param()
	}
}

// jsonFieldNames maps the struct field names of obj to their json names.
func jsonFieldNames(obj any) map[string]string {
	if obj == nil {
		return nil
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	names := make(map[string]string, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name != "" && name != "-" {
			names[f.Name] = name
		}
	}
	return names
}

var errorPages = map[int]string{
	http.StatusBadRequest:          "errors/400.html",
	http.StatusNotFound:            "errors/404.html",
	http.StatusInternalServerError: "errors/500.html",
}

// PageTemplate returns the error page for status; statuses without their
// own page use the 500 page.
func PageTemplate(status int) string {
	if name, ok := errorPages[status]; ok {
		return name
	}
	return errorPages[http.StatusInternalServerError]
}

// PageError renders the HTML error page for err.
func PageError(c *gin.Context, err error) {
	status := domain.HTTPStatusCode(err)
	c.HTML(status, PageTemplate(status), gin.H{})
}
