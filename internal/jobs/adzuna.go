package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the Adzuna search endpoint for the first result page.
const DefaultBaseURL = "https://api.adzuna.com/v1/api/jobs/gb/search/1"

const resultsPerPage = 50

// Job is the flattened shape returned to API callers.
type Job struct {
	Title          string  `json:"title"`
	Company        string  `json:"company"`
	Location       string  `json:"location"`
	Description    string  `json:"description"`
	SalaryMin      float64 `json:"salary_min"`
	SalaryMax      float64 `json:"salary_max"`
	SalaryCurrency string  `json:"salary_currency"`
	Created        string  `json:"created"`
	RedirectURL    string  `json:"redirect_url"`
	ContractType   string  `json:"contract_type"`
	Category       string  `json:"category"`
}

type adzunaResponse struct {
	Results []struct {
		Title   string `json:"title"`
		Company struct {
			DisplayName string `json:"display_name"`
		} `json:"company"`
		Location struct {
			DisplayName string `json:"display_name"`
		} `json:"location"`
		Description    string  `json:"description"`
		SalaryMin      float64 `json:"salary_min"`
		SalaryMax      float64 `json:"salary_max"`
		SalaryCurrency string  `json:"salary_currency"`
		Created        string  `json:"created"`
		RedirectURL    string  `json:"redirect_url"`
		ContractType   string  `json:"contract_type"`
		Category       struct {
			Label string `json:"label"`
		} `json:"category"`
	} `json:"results"`
}

// Client queries the Adzuna job-search API.
type Client struct {
	AppID      string
	AppKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(appID, appKey string) *Client {
	return &Client{
		AppID:      appID,
		AppKey:     appKey,
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Search queries Adzuna for jobs matching the optional query and
// location filters and flattens the results.
func (c *Client) Search(ctx context.Context, query, location string) ([]Job, error) {
	params := url.Values{}
	params.Set("app_id", c.AppID)
	params.Set("app_key", c.AppKey)
	params.Set("results_per_page", fmt.Sprintf("%d", resultsPerPage))
	if query != "" {
		params.Set("what", query)
	}
	if location != "" {
		params.Set("where", location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build job search request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("job search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read job search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("job search API error: %d - %s", resp.StatusCode, string(body))
	}

	var parsed adzunaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse job search response: %w", err)
	}

	jobs := make([]Job, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		jobs = append(jobs, Job{
			Title:          result.Title,
			Company:        result.Company.DisplayName,
			Location:       result.Location.DisplayName,
			Description:    result.Description,
			SalaryMin:      result.SalaryMin,
			SalaryMax:      result.SalaryMax,
			SalaryCurrency: result.SalaryCurrency,
			Created:        result.Created,
			RedirectURL:    result.RedirectURL,
			ContractType:   result.ContractType,
			Category:       result.Category.Label,
		})
	}
	return jobs, nil
}
