package analysis

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/your-org/voicecheck/pkg/audio"
	"github.com/your-org/voicecheck/pkg/risk"
)

const unavailable = "RD_UNAVAILABLE"

// HandlerConfig bounds request bodies and handler run time.
type HandlerConfig struct {
	// MaxBodyBytes caps the whole multipart body, envelope included.
	MaxBodyBytes int64
	// FormMemBytes is the in-memory budget for multipart parsing.
	FormMemBytes int64
	// RequestTimeout must outlast the analysis deadline.
	RequestTimeout time.Duration
}

// HTTPHandler exposes the analysis service over REST.
type HTTPHandler struct {
	service *Service
	logger  *zap.Logger
	cfg     HandlerConfig
	router  chi.Router
}

// NewHTTPHandler constructs the HTTP handler and wires routes.
func NewHTTPHandler(service *Service, logger *zap.Logger, cfg HandlerConfig) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = MaxClipBytes + 1<<20
	}
	if cfg.FormMemBytes <= 0 {
		cfg.FormMemBytes = cfg.MaxBodyBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultDeadline + 20*time.Second
	}
	h := &HTTPHandler{service: service, logger: logger, cfg: cfg}
	h.buildRouter()
	return h
}

func (h *HTTPHandler) buildRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.cfg.RequestTimeout))

	r.Get("/healthz", h.handleHealth)
	r.Get("/health", h.handleHealth)
	r.Get("/debug/rd", h.handleDebug)
	r.Get("/debug/presign", h.handleProbe)

	r.Post("/analyze", h.handleAnalyze)
	r.Post("/timeline", h.handleTimeline)
	r.Get("/status/{id}", h.handleStatus)
	r.Get("/status/", h.handleStatus)

	h.router = r
}

// Router exposes the configured chi router.
func (h *HTTPHandler) Router() http.Handler {
	return h.router
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"status": "ok",
	})
}

func (h *HTTPHandler) handleDebug(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Debug())
}

func (h *HTTPHandler) handleProbe(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Probe(r.Context())
	if err != nil {
		h.logger.Warn("presign probe failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]any{"ok": false, "err": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	clip, status, err := h.readClip(w, r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	res, err := h.service.Analyze(r.Context(), clip)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			status := http.StatusBadRequest
			if ve.Field == "size" {
				status = http.StatusRequestEntityTooLarge
			}
			writeError(w, status, ve.Reason)
			return
		}
		h.logger.Error("analysis failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":  unavailable,
			"detail": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// readClip extracts the optional "file" part. A request without a file, or
// with an empty one, yields a nil clip so the service falls back to its
// default clip.
func (h *HTTPHandler) readClip(w http.ResponseWriter, r *http.Request) (*Clip, int, error) {
	if r.ContentLength > h.cfg.MaxBodyBytes {
		return nil, http.StatusRequestEntityTooLarge, errors.New("payload too large")
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return nil, 0, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	if err := r.ParseMultipartForm(h.cfg.FormMemBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, errors.New("payload too large")
		}
		return nil, http.StatusBadRequest, errors.New("invalid multipart form")
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("invalid file field")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("read file field")
	}
	if len(data) == 0 {
		return nil, 0, nil
	}

	clip, err := NewClip(data, header.Filename, header.Header.Get("Content-Type"), r.FormValue("duration"))
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	if clip.Duration == 0 {
		h.logger.Debug("clip duration unknown, length limit not enforced",
			zap.String("clip", clip.Name),
			zap.String("mime", clip.MIMEType),
		)
	}
	return clip, 0, nil
}

func (h *HTTPHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, ErrMissingID.Error())
		return
	}

	res, err := h.service.Status(r.Context(), id)
	if err != nil {
		h.logger.Warn("status query failed", zap.String("job_id", id), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleTimeline runs the local estimator on a posted WAV clip. The
// response is JSON, or a PNG heat strip with ?format=png.
func (h *HTTPHandler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	clip, status, err := h.readClip(w, r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	if clip == nil {
		if clip, err = h.service.DefaultClip(); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if err := clip.Validate(h.service.Limits()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	decoded, err := audio.Decode(clip.Data)
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}
	tl, err := risk.Estimate(decoded.Mono(), decoded.SampleRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.URL.Query().Get("format") == "png" {
		width := queryInt(r, "width", 640)
		height := queryInt(r, "height", 48)
		w.Header().Set("Content-Type", "image/png")
		if err := tl.WritePNG(w, width, height); err != nil {
			h.logger.Warn("render timeline failed", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sampleRate": tl.SampleRate,
		"hop":        tl.Hop,
		"window":     tl.Window,
		"duration":   tl.Duration(),
		"mean":       tl.Mean(),
		"risk":       tl.Risk,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 || v > 4096 {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}
