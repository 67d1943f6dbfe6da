package landcover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/elvinvaliyev/karabakh-monitor/internal/httputil"
	"github.com/elvinvaliyev/karabakh-monitor/internal/raster"
	"github.com/elvinvaliyev/karabakh-monitor/internal/satelerr"
)

// HTTPClassifier calls a classification service over HTTP. The service
// accepts the composite band planes and answers either discrete labels
// or per-class probability planes; the response envelope's "mode" field
// tells us which.
type HTTPClassifier struct {
	BaseURL string
	Model   string
	Client  httputil.HTTPClient
	Timeout time.Duration
}

// NewHTTPClassifier creates a classifier client for the given service
// and model version with a 60s per-call timeout. Classifier calls are
// the dominant pipeline cost, so the timeout is generous.
func NewHTTPClassifier(baseURL, model string) *HTTPClassifier {
	return &HTTPClassifier{
		BaseURL: baseURL,
		Model:   model,
		Client:  httputil.NewStandardClient(nil),
		Timeout: 60 * time.Second,
	}
}

type classifyRequest struct {
	Model string                `json:"model"`
	Rows  int                   `json:"rows"`
	Cols  int                   `json:"cols"`
	Bands map[string][]*float64 `json:"bands"`
}

type classifyResponse struct {
	Mode          string                `json:"mode"` // "labels" or "probabilities"
	Labels        []*int                `json:"labels,omitempty"`
	Probabilities map[string][]*float64 `json:"probabilities,omitempty"`
}

// Classify posts the composite to the service and decodes the per-pixel
// result. Any transport or decode failure surfaces as
// ClassifierUnavailable for the composite's year.
func (c *HTTPClassifier) Classify(ctx context.Context, composite *raster.CompositeRaster) (*raster.ClassificationRaster, error) {
	req := classifyRequest{
		Model: c.Model,
		Rows:  composite.Grid.Rows,
		Cols:  composite.Grid.Cols,
		Bands: make(map[string][]*float64, len(composite.Bands)),
	}
	for name, plane := range composite.Bands {
		out := make([]*float64, len(plane))
		for i, v := range plane {
			if f := float64(v); !math.IsNaN(f) {
				val := f
				out[i] = &val
			}
		}
		req.Bands[name] = out
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode classify request: %w", err)
	}

	resp, err := c.post(ctx, c.BaseURL+"/v1/classify", body)
	if err != nil {
		return nil, &satelerr.ClassifierUnavailableError{Year: composite.Year, Cause: err}
	}

	cls, err := decodeClassification(resp, composite)
	if err != nil {
		return nil, err
	}
	cls.Model = c.Model
	return cls, nil
}

func (c *HTTPClassifier) post(ctx context.Context, u string, body []byte) (*classifyResponse, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}
	return &out, nil
}

func decodeClassification(resp *classifyResponse, composite *raster.CompositeRaster) (*raster.ClassificationRaster, error) {
	pixels := composite.Grid.Pixels()
	cls := &raster.ClassificationRaster{Grid: composite.Grid, Year: composite.Year}

	switch resp.Mode {
	case "labels":
		if len(resp.Labels) != pixels {
			return nil, &satelerr.ClassifierUnavailableError{
				Year:  composite.Year,
				Cause: fmt.Errorf("label plane has %d samples, want %d", len(resp.Labels), pixels),
			}
		}
		cls.Labels = make([]uint8, pixels)
		for i, l := range resp.Labels {
			if l == nil || *l < 0 || *l >= ClassCount {
				cls.Labels[i] = raster.LabelNoData
			} else {
				cls.Labels[i] = uint8(*l)
			}
		}
	case "probabilities":
		cls.Probs = make([][]float32, ClassCount)
		for classIdx, name := range ClassNames {
			plane := make([]float32, pixels)
			for i := range plane {
				plane[i] = float32(math.NaN())
			}
			src, ok := resp.Probabilities[name]
			if ok {
				if len(src) != pixels {
					return nil, &satelerr.ClassifierUnavailableError{
						Year:  composite.Year,
						Cause: fmt.Errorf("probability plane %s has %d samples, want %d", name, len(src), pixels),
					}
				}
				for i, p := range src {
					if p != nil {
						plane[i] = float32(*p)
					}
				}
			}
			cls.Probs[classIdx] = plane
		}
	default:
		return nil, &satelerr.ClassifierUnavailableError{
			Year:  composite.Year,
			Cause: fmt.Errorf("unknown classification mode %q", resp.Mode),
		}
	}
	return cls, nil
}
