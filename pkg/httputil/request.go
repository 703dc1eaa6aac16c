package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// ParseJSON decodes the request body into dest.
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes the request body into dest, writing a 400
// response on failure. Returns false when the response was written.
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// ParsePathInt64 parses an int64 path parameter.
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return 0, fmt.Errorf("missing path parameter: %s", key)
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, nil
}

// ParsePathInt64OrError parses an int64 path parameter, writing a 400
// response on failure.
func ParsePathInt64OrError(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	val, err := ParsePathInt64(r, key)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return 0, false
	}
	return val, true
}

// GetPathVars returns the request's path variables.
func GetPathVars(r *http.Request) map[string]string {
	return mux.Vars(r)
}

// ParseQueryInt parses an integer query parameter, returning defaultVal
// when the parameter is absent.
func ParseQueryInt(r *http.Request, key string, defaultVal int) (int, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for query param %s: %s", key, str)
	}
	return val, nil
}

// ParseQueryInt64 parses an int64 query parameter, returning defaultVal
// when the parameter is absent.
func ParseQueryInt64(r *http.Request, key string, defaultVal int64) (int64, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for query param %s: %s", key, str)
	}
	return val, nil
}

// ParseQueryString returns a query parameter or defaultVal when absent.
func ParseQueryString(r *http.Request, key string, defaultVal string) string {
	if val := r.URL.Query().Get(key); val != "" {
		return val
	}
	return defaultVal
}

// RequireNonEmpty writes a 400 response when the field is empty.
// Returns false when the response was written.
func RequireNonEmpty(w http.ResponseWriter, value, fieldName string) bool {
	if value == "" {
		WriteValidationError(w, fmt.Sprintf("%s is required", fieldName))
		return false
	}
	return true
}

// RequirePositive writes a 400 response when the field is not positive.
// Returns false when the response was written.
func RequirePositive(w http.ResponseWriter, value int64, fieldName string) bool {
	if value <= 0 {
		WriteValidationError(w, fmt.Sprintf("%s must be positive", fieldName))
		return false
	}
	return true
}
