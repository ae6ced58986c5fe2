package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sentryflow/shared/types"
)

// OracleClient invokes the hosted anomaly-scoring endpoint. The oracle
// takes one delimited-text row of the ten ordered features and answers
// with a scores array.
type OracleClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewOracleClient(endpoint string) *OracleClient {
	return &OracleClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type oracleResponse struct {
	Scores []struct {
		Score float64 `json:"score"`
	} `json:"scores"`
}

// Score builds the feature vector for one row, invokes the oracle, and
// returns the first score in the response.
func (c *OracleClient) Score(ctx context.Context, row types.FeatureWindow) (float64, error) {
	payload := FeatureVector(row)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("invoke oracle: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var result oracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode oracle response: %w", err)
	}
	if len(result.Scores) == 0 {
		return 0, fmt.Errorf("oracle response carried no scores")
	}
	return result.Scores[0].Score, nil
}

// FeatureVector serializes a row's counters as a comma-joined decimal
// string in the fixed feature order. Metrics absent from the row read as 0.
func FeatureVector(row types.FeatureWindow) string {
	vals := make([]string, len(types.FeatureColumns))
	for i, col := range types.FeatureColumns {
		vals[i] = strconv.FormatFloat(row.Metrics[col], 'f', -1, 64)
	}
	return strings.Join(vals, ",")
}
