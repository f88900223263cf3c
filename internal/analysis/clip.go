package analysis

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/your-org/voicecheck/pkg/audio"
)

const (
	// MaxClipBytes is the largest clip the service accepts.
	MaxClipBytes = 5 << 20
	// MaxClipDuration is the longest clip the service accepts.
	MaxClipDuration = 15 * time.Second

	defaultClipName = "demo.wav"
	defaultMIME     = "audio/wav"
)

// Clip is an immutable audio payload submitted for analysis. A zero
// Duration means the duration is unknown.
type Clip struct {
	Data     []byte
	MIMEType string
	Name     string
	Duration time.Duration
}

// Limits bounds what Validate accepts.
type Limits struct {
	MaxBytes    int64
	MaxDuration time.Duration
}

// DefaultLimits are the documented clip limits.
var DefaultLimits = Limits{MaxBytes: MaxClipBytes, MaxDuration: MaxClipDuration}

// ValidationError rejects a clip before any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks the clip against l.
func (c *Clip) Validate(l Limits) error {
	if len(c.Data) == 0 {
		return &ValidationError{Field: "data", Reason: "no audio"}
	}
	if l.MaxBytes > 0 && int64(len(c.Data)) > l.MaxBytes {
		return &ValidationError{
			Field:  "size",
			Reason: fmt.Sprintf("file too large (>%s)", formatBytes(l.MaxBytes)),
		}
	}
	if l.MaxDuration > 0 && c.Duration > l.MaxDuration {
		return &ValidationError{
			Field:  "duration",
			Reason: fmt.Sprintf("clip too long (>%s)", l.MaxDuration),
		}
	}
	return nil
}

// NewClip builds a clip from an uploaded payload. The MIME type is
// normalised, and the duration is read from the WAV header when possible,
// else from declared (seconds, as sent by the client).
func NewClip(data []byte, name, mimeType, declared string) (*Clip, error) {
	c := &Clip{
		Data:     data,
		Name:     name,
		MIMEType: NormalizeMIME(mimeType),
	}
	if c.Name == "" {
		c.Name = defaultClipName
	}

	if info, err := audio.Parse(data); err == nil {
		c.Duration = info.Duration()
		c.MIMEType = defaultMIME
	} else if declared != "" {
		secs, err := strconv.ParseFloat(strings.TrimSpace(declared), 64)
		if err != nil || secs < 0 {
			return nil, &ValidationError{Field: "duration", Reason: "invalid duration"}
		}
		c.Duration = time.Duration(secs * float64(time.Second))
	}
	return c, nil
}

// NormalizeMIME maps a browser-reported type onto the set the detection
// service accepts. Unknown types are sent as WAV.
func NormalizeMIME(m string) string {
	m = strings.ToLower(m)
	switch {
	case strings.Contains(m, "wav"):
		return "audio/wav"
	case strings.Contains(m, "mpeg"):
		return "audio/mpeg"
	case strings.Contains(m, "mp4"):
		return "audio/mp4"
	case strings.Contains(m, "webm"):
		return "audio/webm"
	case strings.Contains(m, "ogg"):
		return "audio/ogg"
	default:
		return defaultMIME
	}
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// UploadName derives a collision-resistant remote file name from the clip
// name: millisecond timestamp, underscore, sanitised name.
func UploadName(name string, now time.Time) string {
	if name == "" {
		name = defaultClipName
	}
	return fmt.Sprintf("%d_%s", now.UnixMilli(), unsafeName.ReplaceAllString(name, "_"))
}

func formatBytes(n int64) string {
	if n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}
