package pricing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"
)

const defaultMatrixURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

// MatrixClient resolves driving distance through the Distance Matrix API.
type MatrixClient struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

// NewMatrixClient reads MAPS_API_KEY from the environment.
func NewMatrixClient() *MatrixClient {
	return &MatrixClient{
		APIKey:  os.Getenv("MAPS_API_KEY"),
		BaseURL: defaultMatrixURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type matrixResponse struct {
	DestinationAddresses []string `json:"destination_addresses"`
	Rows                 []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value int64 `json:"value"` // meters
			} `json:"distance"`
		} `json:"elements"`
	} `json:"rows"`
	Status string `json:"status"`
}

func (m *MatrixClient) Distance(origin, destination string) (float64, string, error) {
	params := url.Values{}
	params.Set("origins", origin)
	params.Set("destinations", destination)
	params.Set("key", m.APIKey)
	params.Set("mode", "driving")
	params.Set("units", "metric")

	resp, err := m.HTTP.Get(m.BaseURL + "?" + params.Encode())
	if err != nil {
		return 0, "", fmt.Errorf("failed to reach distance API: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, "", fmt.Errorf("distance API error (%d)", resp.StatusCode)
	}

	var out matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, "", fmt.Errorf("failed to parse distance response: %v", err)
	}

	if out.Status != "OK" || len(out.Rows) == 0 || len(out.Rows[0].Elements) == 0 {
		return 0, "", fmt.Errorf("no route in distance response (status %s)", out.Status)
	}
	el := out.Rows[0].Elements[0]
	if el.Status != "OK" {
		return 0, "", fmt.Errorf("route not found: %s", el.Status)
	}

	address := ""
	if len(out.DestinationAddresses) > 0 {
		address = out.DestinationAddresses[0]
	}
	return float64(el.Distance.Value) / 1000.0, address, nil
}
