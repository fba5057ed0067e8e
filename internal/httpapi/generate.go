package httpapi

import (
	"errors"
	"math"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hdi1d/internal/errs"
	"hdi1d/internal/generation"
	"hdi1d/pkg/types"
)

var errInvalidJSON = errors.New("invalid JSON body")

// generateHandler serves POST /generate. The body is JSON or a form
// (urlencoded or multipart) with the same field names.
func generateHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lvl := requestLogLevel(r)

		req, err := decodeGenerate(w, r)
		if err != nil {
			status := writeError(w, err, generation.ErrorStatus(err))
			logEnd(r, lvl, status, start, err)
			return
		}
		if ev := logEvent(r, lvl, LevelInfo); ev != nil {
			ev.Str("variant", req.Variant).Str("resolution", req.Resolution).Int64("seed", req.Seed).Msg("generate start")
		}
		if ev := logEvent(r, lvl, LevelDebug); ev != nil {
			ev.Str("prompt", req.Prompt).Str("scheduler", req.Scheduler).Str("format", req.Format).Msg("generate request")
		}

		ctx, cancel := workContext(r)
		defer cancel()
		res := svc.Generate(ctx, req)
		if res.Err != nil {
			// Client disconnect or shutdown: nobody to answer.
			if aborted(r) {
				logEnd(r, lvl, 499, start, res.Err)
				return
			}
			status := writeError(w, res.Err, res.Status)
			logEnd(r, lvl, status, start, res.Err)
			return
		}
		writeJSON(w, http.StatusOK, generateResponse(res))
		logEnd(r, lvl, http.StatusOK, start, nil)
	}
}

func generateResponse(res generation.Result) types.GenerateResponse {
	resp := types.GenerateResponse{
		ID:           res.ID,
		Status:       res.Status,
		Seed:         res.Seed,
		Variant:      res.Variant,
		Width:        res.Width,
		Height:       res.Height,
		Format:       string(res.Format),
		SaveMessage:  res.SaveMessage,
		SavedPath:    res.SavedPath,
		DownloadPath: res.TempPath,
		DurationMS:   res.Duration.Milliseconds(),
	}
	if res.TempPath != "" {
		resp.DownloadURL = "/download/" + filepath.Base(res.TempPath)
	}
	if res.SavedPath != "" {
		resp.ImageURL = "/outputs/" + filepath.Base(res.SavedPath)
	}
	return resp
}

func decodeGenerate(w http.ResponseWriter, r *http.Request) (generation.Request, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/json":
		var body types.GenerateRequest
		if err := decodeJSONBody(w, r, &body); err != nil {
			return generation.Request{}, errs.E(errs.KindValidation, "decode", err)
		}
		return fromAPI(body)
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return generation.Request{}, errs.E(errs.KindValidation, "decode", errors.New("invalid form body"))
		}
		return fromForm(r)
	default:
		return generation.Request{}, &statusError{
			code: http.StatusUnsupportedMediaType,
			msg:  "Content-Type must be application/json or a form",
		}
	}
}

func fromAPI(b types.GenerateRequest) (generation.Request, error) {
	seed, err := generation.ParseSeed(b.Seed.String())
	if err != nil {
		return generation.Request{}, err
	}
	return generation.Request{
		Variant:       b.Variant,
		Prompt:        b.Prompt,
		Resolution:    b.Resolution,
		Width:         b.Width,
		Height:        b.Height,
		Seed:          seed,
		Scheduler:     b.Scheduler,
		GuidanceScale: b.GuidanceScale,
		Steps:         b.Steps,
		Shift:         b.Shift,
		Format:        b.Format,
	}, nil
}

func fromForm(r *http.Request) (generation.Request, error) {
	get := func(k string) string { return strings.TrimSpace(r.FormValue(k)) }
	req := generation.Request{
		Variant:    get("variant"),
		Prompt:     r.FormValue("prompt"),
		Resolution: get("resolution"),
		Scheduler:  get("scheduler"),
		Format:     get("format"),
	}
	seed, err := generation.ParseSeed(get("seed"))
	if err != nil {
		return req, err
	}
	req.Seed = seed
	if req.Width, err = formInt(get("width"), "width"); err != nil {
		return req, err
	}
	if req.Height, err = formInt(get("height"), "height"); err != nil {
		return req, err
	}
	if req.Steps, err = formInt(get("steps"), "steps"); err != nil {
		return req, err
	}
	if req.GuidanceScale, err = formFloat(get("guidance_scale"), "guidance_scale"); err != nil {
		return req, err
	}
	if req.Shift, err = formFloat(get("shift"), "shift"); err != nil {
		return req, err
	}
	return req, nil
}

func formInt(v, field string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	// UI sliders may submit "16.0".
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int(f)) {
		return nil, errs.Validation(field, "must be an integer")
	}
	n := int(f)
	return &n, nil
}

func formFloat(v, field string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errs.Validation(field, "must be a finite number")
	}
	return &f, nil
}

// statusError carries an explicit HTTP status for transport-level failures.
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string   { return e.msg }
func (e *statusError) StatusCode() int { return e.code }
