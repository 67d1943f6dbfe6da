package imagery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/elvinvaliyev/karabakh-monitor/internal/geo"
	"github.com/elvinvaliyev/karabakh-monitor/internal/httputil"
	"github.com/elvinvaliyev/karabakh-monitor/internal/raster"
)

// CatalogClient is the HTTP SceneSource implementation. Authentication
// is a bearer token when an API key is configured; session management
// beyond that is the deployment's problem, not ours.
type CatalogClient struct {
	BaseURL string
	APIKey  string
	Client  httputil.HTTPClient
	Timeout time.Duration
}

// NewCatalogClient creates a catalog client with the default HTTP
// client and a 30s per-call timeout.
func NewCatalogClient(baseURL, apiKey string) *CatalogClient {
	return &CatalogClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  httputil.NewStandardClient(nil),
		Timeout: 30 * time.Second,
	}
}

type searchRequest struct {
	BBox        [4]float64 `json:"bbox"`
	Start       string     `json:"start"`
	End         string     `json:"end"`
	MaxCloudPct float64    `json:"max_cloud_pct"`
}

type searchResponse struct {
	Scenes []Scene `json:"scenes"`
}

// Search lists catalog scenes for the bounds and window at or below the
// cloud ceiling.
func (c *CatalogClient) Search(ctx context.Context, bounds geo.BBox, window TimeWindow, maxCloudPct float64) ([]Scene, error) {
	body, err := json.Marshal(searchRequest{
		BBox:        [4]float64{bounds.MinLon, bounds.MinLat, bounds.MaxLon, bounds.MaxLat},
		Start:       window.Start.Format("2006-01-02"),
		End:         window.End.Format("2006-01-02"),
		MaxCloudPct: maxCloudPct,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	var resp searchResponse
	if err := c.postJSON(ctx, c.BaseURL+"/catalog/search", body, &resp); err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}
	return resp.Scenes, nil
}

// sceneRasterResponse uses pointer floats so provider nodata (JSON
// null) survives decoding and can be mapped to NaN.
type sceneRasterResponse struct {
	Bands map[string][]*float64 `json:"bands"`
	QA    []*float64            `json:"qa"`
}

// FetchBands retrieves one scene's raw band planes on the analysis grid.
func (c *CatalogClient) FetchBands(ctx context.Context, sceneID string, grid raster.Grid) (*SceneRaster, error) {
	u := fmt.Sprintf("%s/scenes/%s/raster?%s", c.BaseURL, url.PathEscape(sceneID), url.Values{
		"min_lon": {fmt.Sprintf("%g", grid.OriginLon)},
		"max_lat": {fmt.Sprintf("%g", grid.OriginLat)},
		"rows":    {fmt.Sprintf("%d", grid.Rows)},
		"cols":    {fmt.Sprintf("%d", grid.Cols)},
		"res_m":   {fmt.Sprintf("%g", grid.ResolutionM)},
	}.Encode())

	var resp sceneRasterResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("fetch bands for scene %s failed: %w", sceneID, err)
	}

	sr := &SceneRaster{
		SceneID: sceneID,
		Grid:    grid,
		Bands:   make(map[string][]float32, len(resp.Bands)),
		QA:      make([]uint16, grid.Pixels()),
	}
	for name, plane := range resp.Bands {
		if len(plane) != grid.Pixels() {
			return nil, fmt.Errorf("scene %s band %s has %d samples, want %d", sceneID, name, len(plane), grid.Pixels())
		}
		out := make([]float32, len(plane))
		for i, v := range plane {
			if v == nil {
				out[i] = float32(math.NaN())
			} else {
				out[i] = float32(*v)
			}
		}
		sr.Bands[name] = out
	}
	if len(resp.QA) > 0 {
		if len(resp.QA) != grid.Pixels() {
			return nil, fmt.Errorf("scene %s qa plane has %d samples, want %d", sceneID, len(resp.QA), grid.Pixels())
		}
		for i, v := range resp.QA {
			if v != nil {
				sr.QA[i] = uint16(*v)
			}
		}
	}
	return sr, nil
}

func (c *CatalogClient) postJSON(ctx context.Context, u string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

func (c *CatalogClient) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

func (c *CatalogClient) doJSON(req *http.Request, out interface{}) error {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if c.Timeout > 0 {
		ctx, cancel := context.WithTimeout(req.Context(), c.Timeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a little of the body for the error message; providers
		// put useful detail there.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}
