package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// FileExists check if file exists
func FileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// FileNonEmpty check if file exists and has content
func FileNonEmpty(name string) bool {
	st, err := os.Stat(name)
	return err == nil && st.Size() > 0
}

// SupportAudioExt checks if audio ext is supported
func SupportAudioExt(ext string) bool {
	switch ext {
	case ".wav", ".mp3", ".mp4", ".m4a", ".ogg", ".opus", ".webm", ".wma":
		return true
	}
	return false
}

// MakeValidateFileName returns sanitized `id/fileName`, dropping any path part
func MakeValidateFileName(id string, fileName string) (string, error) {
	res := filepath.Base(filepath.Clean(fileName))
	if res == "." || res == ".." || res == string(filepath.Separator) {
		return "", fmt.Errorf("wrong file name '%s'", fileName)
	}
	ext := filepath.Ext(res)
	res = strings.TrimSuffix(res, ext) + strings.ToLower(ext)
	res = strings.ReplaceAll(res, " ", "_")
	if id == "" {
		return res, nil
	}
	return id + "/" + res, nil
}

// MakeRecordingFileName derives a stored audio name from patient display fields
// and the upload moment, sanitized to a safe character set
func MakeRecordingFileName(patientIdent, petName string, at time.Time, ext string) string {
	return fmt.Sprintf("%s_%s_%s%s", sanitize(patientIdent), sanitize(petName),
		at.Format("20060102-150405"), strings.ToLower(ext))
}

func sanitize(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		case r == '-' || r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	res := sb.String()
	if res == "" {
		return "na"
	}
	return res
}

// ExtForMime maps a recording mime type to a file extension
func ExtForMime(mime string) string {
	m := mime
	if i := strings.Index(m, ";"); i >= 0 {
		m = m[:i]
	}
	switch strings.TrimSpace(m) {
	case "audio/ogg", "application/ogg":
		return ".ogg"
	case "audio/webm", "video/webm":
		return ".webm"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/mp4", "audio/m4a":
		return ".m4a"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	}
	return ".bin"
}
