package utils

import (
	"bytes"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrContentTooLarge = errors.New("content exceeds size limit")

// SendJSONResponse sends a JSON response with the given status code and data
func SendJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandleError standardizes error handling by sending a JSON error response
func HandleError(w http.ResponseWriter, status int, message string) {
	SendJSONResponse(w, status, map[string]string{
		"message": message,
	})
}

// EncodeDataURL reads r fully into a data URL. Reading stops with
// ErrContentTooLarge as soon as more than limit bytes arrive.
func EncodeDataURL(r io.Reader, mediaType string, limit int64) (string, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return "", err
	}
	if n > limit {
		return "", ErrContentTooLarge
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// HashPassword hashes a plaintext password using bcrypt
func HashPassword(password string) (string, error) {
	hashPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashPassword), nil
}

// CheckPassword compares a stored credential with a plaintext password.
// Credentials restored from old backups are plain base64 and are compared as
// such.
func CheckPassword(stored, plainPassword string) error {
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plainPassword))
	}
	legacy := base64.StdEncoding.EncodeToString([]byte(plainPassword))
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(legacy)) != 1 {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return nil
}

// BackupFileName builds the download name for a backup exported at exportedAt.
func BackupFileName(prefix, exportedAt string) string {
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(exportedAt)
	return fmt.Sprintf("%s-%s.json", prefix, stamp)
}

func ErrorWithTrace(err error, errMesssage string) error {

	if err != nil {
		// Skip 1 level to get the caller of this function
		_, file, line, _ := runtime.Caller(1)
		return fmt.Errorf("%s:%d: %v %s", file, line, err, errMesssage)
	}
	return nil
}
