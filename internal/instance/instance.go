package instance

import (
	"fmt"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	DefaultHealthPath = "/api/health"
	DefaultStatsPath  = "/api/traffic/stats"
)

// Instance is one backend server being monitored.
type Instance struct {
	ID        string
	HealthURL string
	StatsURL  string
}

// New creates an Instance after validating its identifier and endpoint URLs.
func New(id, healthURL, statsURL string) (Instance, error) {
	inst := Instance{
		ID:        strings.TrimSpace(id),
		HealthURL: healthURL,
		StatsURL:  statsURL,
	}

	if err := inst.Validate(); err != nil {
		return Instance{}, fmt.Errorf("instance %q: %w", id, err)
	}

	return inst, nil
}

// FromBase derives the health and stats URLs by resolving the given paths
// against baseURL. Empty paths fall back to the SIGLAB defaults.
func FromBase(id, baseURL, healthPath, statsPath string) (Instance, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return Instance{}, fmt.Errorf("instance %q: invalid base url: %w", id, err)
	}

	if healthPath == "" {
		healthPath = DefaultHealthPath
	}
	if statsPath == "" {
		statsPath = DefaultStatsPath
	}

	return New(id, join(base, healthPath), join(base, statsPath))
}

// Validate reports whether the instance is usable by the prober and sampler.
func (i Instance) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ID, validation.Required),
		validation.Field(&i.HealthURL, validation.Required, validation.By(validateEndpointURL)),
		validation.Field(&i.StatsURL, validation.Required, validation.By(validateEndpointURL)),
	)
}

func (i Instance) String() string {
	return i.ID
}

func join(base *url.URL, path string) string {
	u := *base
	u.Path = strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return u.String()
}

func validateEndpointURL(value interface{}) error {
	raw, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsedURL, err := url.Parse(raw)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
