package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ivlev/framectl/internal/frame"
	"github.com/sirupsen/logrus"
)

const (
	img2imgPath   = "/sdapi/v1/img2img"
	optionsPath   = "/sdapi/v1/options"
	colorCorrOpt  = "img2img_color_correction"
	maxReplyBytes = 64 << 20
)

// WebUI работает со Stable Diffusion WebUI через его HTTP API.
type WebUI struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Log            logrus.FieldLogger
}

type img2imgRequest struct {
	InitImages        []string `json:"init_images"`
	Prompt            string   `json:"prompt"`
	Seed              int64    `json:"seed"`
	CfgScale          float64  `json:"cfg_scale"`
	DenoisingStrength float64  `json:"denoising_strength"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	NIter             int      `json:"n_iter"`
	BatchSize         int      `json:"batch_size"`
}

type img2imgResponse struct {
	Images []string `json:"images"`
	Info   string   `json:"info"`
}

func (w *WebUI) Generate(ctx context.Context, req Request) (Response, error) {
	if req.Image == nil {
		return Response{}, fmt.Errorf("%w: no input image", ErrGenerator)
	}

	var buf bytes.Buffer
	if err := frame.EncodePNG(&buf, req.Image); err != nil {
		return Response{}, fmt.Errorf("encode init image: %w", err)
	}

	body := img2imgRequest{
		InitImages:        []string{base64.StdEncoding.EncodeToString(buf.Bytes())},
		Prompt:            req.Prompt,
		Seed:              req.Seed,
		CfgScale:          req.Scale,
		DenoisingStrength: req.Denoise,
		Width:             req.Width,
		Height:            req.Height,
		NIter:             1,
		BatchSize:         1,
	}

	var reply img2imgResponse
	if err := w.do(ctx, http.MethodPost, img2imgPath, body, &reply); err != nil {
		return Response{}, err
	}
	if len(reply.Images) == 0 {
		return Response{}, fmt.Errorf("%w: img2img returned no images", ErrGenerator)
	}

	img, err := decodeImage(reply.Images[0])
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrGenerator, err)
	}

	seed := req.Seed
	var info struct {
		Seed int64 `json:"seed"`
	}
	if reply.Info != "" && json.Unmarshal([]byte(reply.Info), &info) == nil && info.Seed != 0 {
		seed = info.Seed
	}

	return Response{Image: img, Seed: seed, Info: reply.Info}, nil
}

// BeginRun выключает собственную цветокоррекцию img2img в WebUI, чтобы она
// не спорила с окном коррекции конвейера.
func (w *WebUI) BeginRun(ctx context.Context) (func(context.Context) error, error) {
	var opts map[string]any
	if err := w.do(ctx, http.MethodGet, optionsPath, nil, &opts); err != nil {
		return nil, err
	}
	old, _ := opts[colorCorrOpt].(bool)

	if err := w.setColorCorrection(ctx, false); err != nil {
		return nil, err
	}
	w.logger().WithField("previous", old).Info("Disabled WebUI colour correction for the run")

	return func(ctx context.Context) error {
		w.logger().WithField("value", old).Info("Restoring WebUI colour correction")
		return w.setColorCorrection(ctx, old)
	}, nil
}

func (w *WebUI) setColorCorrection(ctx context.Context, on bool) error {
	return w.do(ctx, http.MethodPost, optionsPath, map[string]any{colorCorrOpt: on}, nil)
}

func (w *WebUI) do(ctx context.Context, method, path string, in, out any) error {
	endpoint, err := url.JoinPath(w.BaseURL, path)
	if err != nil {
		return fmt.Errorf("build %s url: %w", path, err)
	}

	var payload io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		payload = bytes.NewReader(raw)
	}

	if w.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.RequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := w.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrGenerator, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s %s: %s: %s", ErrGenerator, method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplyBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrGenerator, path, err)
	}
	return nil
}

func (w *WebUI) httpClient() *http.Client {
	if w.HTTPClient != nil {
		return w.HTTPClient
	}
	return http.DefaultClient
}

func (w *WebUI) logger() logrus.FieldLogger {
	if w.Log != nil {
		return w.Log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func decodeImage(s string) (*frame.Frame, error) {
	// Некоторые сборки добавляют перед данными заголовок data URL
	if i := strings.IndexByte(s, ','); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return frame.FromImage(img), nil
}
