package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/sumire/pumpplanner/internal/domain"
)

// Geocoder suggests addresses for free-text input.
type Geocoder interface {
	Suggest(ctx context.Context, query string) ([]domain.Address, error)
}

// NoopGeocoder never suggests anything.
type NoopGeocoder struct{}

// Suggest returns no suggestions.
func (NoopGeocoder) Suggest(context.Context, string) ([]domain.Address, error) {
	return []domain.Address{}, nil
}

const maxSuggestions = 5

// NominatimGeocoder queries a Nominatim-compatible search endpoint.
type NominatimGeocoder struct {
	baseURL string
	client  *http.Client
}

// NewNominatimGeocoder creates a geocoder for baseURL.
func NewNominatimGeocoder(baseURL string, timeout time.Duration) *NominatimGeocoder {
	return &NominatimGeocoder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Road        string `json:"road"`
		HouseNumber string `json:"house_number"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		Postcode    string `json:"postcode"`
	} `json:"address"`
}

// Suggest returns up to five addresses matching query. Queries shorter than
// three characters are not sent.
func (g *NominatimGeocoder) Suggest(ctx context.Context, query string) ([]domain.Address, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 3 {
		return []domain.Address{}, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", "5")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pumpplanner")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "geocode")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("geocoder returned status %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, errors.Wrap(err, "decode places")
	}

	out := make([]domain.Address, 0, min(len(places), maxSuggestions))
	for _, p := range places {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, p.toAddress())
	}
	return out, nil
}

func (p nominatimPlace) toAddress() domain.Address {
	street := strings.TrimSpace(p.Address.Road + " " + p.Address.HouseNumber)
	city := p.Address.City
	if city == "" {
		city = p.Address.Town
	}
	if city == "" {
		city = p.Address.Village
	}
	return domain.Address{
		Label:      p.DisplayName,
		Street:     street,
		City:       city,
		PostalCode: p.Address.Postcode,
	}
}
