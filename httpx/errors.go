package httpx

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/mbolis/quick-forms/log"
	"github.com/pkg/errors"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	w.WriteHeader(http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

// Will log an error code at the given level, and send
// an HTTP response with status and a JSON body
func LogJSON(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string, body any) {
	log.Log(level, code)
	render.Status(r, status)
	render.JSON(w, r, body)
}

// Will log a debug message, and send an HTTP response with status 400.
// Validation failures carry one message per offending field, an oversized
// body answers 413.
func LogBadRequest(w http.ResponseWriter, r *http.Request, code string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		LogStatusMsg(w, http.StatusRequestEntityTooLarge, log.DebugLevel, code, "request body larger than %d bytes", tooLarge.Limit)
		return
	}

	var verr validator.ValidationErrors
	if !errors.As(err, &verr) {
		LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, code, "malformed request body")
		return
	}

	fields := make(map[string]string, len(verr))
	for _, fe := range verr {
		fields[fe.Namespace()] = fieldMessage(fe)
	}
	log.Debugf("%s: %s", code, err)
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, map[string]any{
		"error":  "invalid payload",
		"fields": fields,
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s items", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gtefield":
		return fmt.Sprintf("must not be less than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
