package listings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"fsbo_finder_backend/platform/config"
	"fsbo_finder_backend/platform/logger"
	"fsbo_finder_backend/platform/phone"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultHTTPTimeout = 20 * time.Second

	// The search API allows 2 calls per second.
	searchCallsPerSecond = 2

	// Owner-detail lookups run concurrently but bounded.
	detailConcurrency = 4
)

// Searcher is the interface the runner and export handlers consume.
type Searcher interface {
	Search(ctx context.Context, params SearchParams) ([]Property, error)
}

// Client handles listing-search API requests (RapidAPI-hosted).
type Client struct {
	httpClient *http.Client
	baseURL    string
	host       string
	apiKey     string
	limiter    *rate.Limiter
	log        *logger.Logger
}

// New creates a new listing-search client.
func New(cfg config.ListingsConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		baseURL:    "https://" + cfg.GetRapidAPIHost(),
		host:       cfg.GetRapidAPIHost(),
		apiKey:     cfg.GetRapidAPIKey(),
		limiter:    rate.NewLimiter(rate.Limit(searchCallsPerSecond), 1),
		log:        log,
	}
}

type searchResponse struct {
	Results    []rawProperty `json:"results"`
	TotalPages int           `json:"totalPages"`
}

type rawProperty struct {
	ZPID          json.Number `json:"zpid"`
	StreetAddress string      `json:"streetAddress"`
	City          string      `json:"city"`
	State         string      `json:"state"`
	Zipcode       string      `json:"zipcode"`
	County        string      `json:"county"`
	Price         float64     `json:"price"`
	Bedrooms      float64     `json:"bedrooms"`
	Bathrooms     float64     `json:"bathrooms"`
	LivingArea    float64     `json:"livingArea"`
	ImgSrc        string      `json:"imgSrc"`
	HomeType      string      `json:"homeType"`
	YearBuilt     *int        `json:"yearBuilt"`
	Description   string      `json:"description"`
}

// Search runs a paginated FSBO property search and enriches every hit with
// owner details; non-FSBO listings are dropped. Properties keep input order.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]Property, error) {
	all := make([]Property, 0)
	totalPages := 1

	for page := 1; page <= totalPages; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.fetchPage(ctx, params, page)
		if err != nil {
			return nil, fmt.Errorf("search page %d: %w", page, err)
		}
		if page == 1 && resp.TotalPages > 0 {
			totalPages = resp.TotalPages
		}
		if len(resp.Results) == 0 {
			break
		}
		for _, raw := range resp.Results {
			all = append(all, mapProperty(raw))
		}
	}

	return c.enrichFSBO(ctx, all)
}

func (c *Client) fetchPage(ctx context.Context, params SearchParams, page int) (searchResponse, error) {
	query := url.Values{}
	query.Set("location", params.Location+", "+params.State)
	query.Set("status", "forSale")
	query.Set("page", fmt.Sprintf("%d", page))
	query.Set("price_min", orDefault(params.MinPrice, "0"))
	query.Set("price_max", orDefault(params.MaxPrice, "10000000"))
	query.Set("beds_min", orDefault(params.Beds, "0"))
	query.Set("baths_min", orDefault(params.Baths, "0"))
	query.Set("sqft_min", orDefault(params.MinSqft, "0"))
	query.Set("sqft_max", orDefault(params.MaxSqft, "10000000"))
	query.Set("built_min", orDefault(params.MinYear, "1800"))
	query.Set("built_max", orDefault(params.MaxYear, "2025"))
	// Owner listings only; agent and distressed channels are excluded.
	query.Set("listing_type", "by_owner_other")
	query.Set("isForSaleByOwner", "true")
	query.Set("isForSaleByAgent", "false")
	query.Set("isComingSoon", "false")
	query.Set("isForSaleForeclosure", "false")
	query.Set("isAuction", "false")
	query.Set("isNewConstruction", "false")
	for flag, enabled := range resolveTypeFlags(params.HomeType) {
		query.Set(flag, fmt.Sprintf("%t", enabled))
	}

	var resp searchResponse
	if err := c.get(ctx, "/search", query, &resp); err != nil {
		return searchResponse{}, err
	}
	return resp, nil
}

// resolveTypeFlags turns selected home types into the API's boolean flag set.
// No selection means every type is enabled.
func resolveTypeFlags(homeTypes []string) map[string]bool {
	flags := make(map[string]bool, len(propertyTypeFlags))
	for _, flag := range propertyTypeFlags {
		flags[flag] = len(homeTypes) == 0
	}
	for _, homeType := range homeTypes {
		if flag, ok := propertyTypeFlags[homeType]; ok {
			flags[flag] = true
		}
	}
	return flags
}

// OwnerDetails is the per-property enrichment result.
type OwnerDetails struct {
	Agent     ListingAgent
	YearBuilt *int
	County    string
	IsFSBO    bool
}

type detailResponse struct {
	YearBuilt      *int   `json:"yearBuilt"`
	County         string `json:"county"`
	ListingSubType struct {
		IsFSBO bool `json:"is_FSBO"`
	} `json:"listing_sub_type"`
	ListingAgent struct {
		BrokerName string `json:"brokerName"`
	} `json:"listingAgent"`
	ListedBy []struct {
		Elements []struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"elements"`
	} `json:"listedBy"`
}

// FetchOwnerDetails resolves owner contact info for one listing and reports
// whether it is actually an FSBO listing.
func (c *Client) FetchOwnerDetails(ctx context.Context, listingID string) (OwnerDetails, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return OwnerDetails{}, err
	}

	query := url.Values{}
	query.Set("zpid", listingID)

	var resp detailResponse
	if err := c.get(ctx, "/propertyV2", query, &resp); err != nil {
		return OwnerDetails{}, err
	}

	isFSBO := resp.ListingSubType.IsFSBO || resp.ListingAgent.BrokerName == "For Sale By Owner"
	details := OwnerDetails{
		YearBuilt: resp.YearBuilt,
		County:    orDefault(resp.County, phone.Unavailable),
		IsFSBO:    isFSBO,
		Agent: ListingAgent{
			Name:       "Property Owner",
			BrokerName: "For Sale By Owner",
			Phone:      extractOwnerPhone(resp),
			Email:      phone.Unavailable,
		},
	}
	return details, nil
}

// extractOwnerPhone walks listedBy[0].elements for the PHONE entry.
func extractOwnerPhone(resp detailResponse) string {
	if len(resp.ListedBy) == 0 {
		return phone.Unavailable
	}
	for _, el := range resp.ListedBy[0].Elements {
		if el.ID == "PHONE" && el.Text != "" {
			return el.Text
		}
	}
	return phone.Unavailable
}

// enrichFSBO merges owner details into each property with bounded concurrency
// and keeps only confirmed FSBO listings, preserving input order. Per-property
// detail failures drop that property rather than failing the search.
func (c *Client) enrichFSBO(ctx context.Context, properties []Property) ([]Property, error) {
	if len(properties) == 0 {
		return properties, nil
	}

	keep := make([]bool, len(properties))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)
	for i := range properties {
		g.Go(func() error {
			details, err := c.FetchOwnerDetails(gctx, properties[i].ID)
			if err != nil {
				c.log.Warn("owner details lookup failed", "property_id", properties[i].ID, "error", err)
				return nil
			}
			if !details.IsFSBO {
				return nil
			}
			mu.Lock()
			properties[i].ListingAgent = details.Agent
			properties[i].YearBuilt = details.YearBuilt
			properties[i].County = details.County
			keep[i] = true
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fsbo := make([]Property, 0, len(properties))
	for i, property := range properties {
		if keep[i] {
			fsbo = append(fsbo, property)
		}
	}
	return fsbo, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("listing api request failed", "path", path, "error", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("listing api %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func mapProperty(raw rawProperty) Property {
	formattedAddress := strings.ReplaceAll(
		fmt.Sprintf("%s-%s-%s-%s", raw.StreetAddress, raw.City, raw.State, raw.Zipcode), " ", "-")

	return Property{
		ID:           raw.ZPID.String(),
		Address:      raw.StreetAddress,
		City:         raw.City,
		State:        raw.State,
		ZipCode:      raw.Zipcode,
		County:       raw.County,
		Price:        raw.Price,
		Beds:         raw.Bedrooms,
		Baths:        raw.Bathrooms,
		Sqft:         raw.LivingArea,
		ImageURL:     raw.ImgSrc,
		PropertyType: raw.HomeType,
		YearBuilt:    raw.YearBuilt,
		Description:  raw.Description,
		ZillowLink:   fmt.Sprintf("https://www.zillow.com/homedetails/%s/%s_zpid/", formattedAddress, raw.ZPID.String()),
		ListingAgent: ListingAgent{
			Name:       phone.Unavailable,
			BrokerName: phone.Unavailable,
			Phone:      phone.Unavailable,
			Email:      phone.Unavailable,
		},
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
