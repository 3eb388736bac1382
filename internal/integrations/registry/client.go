package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"

	"workitem-system/internal/repositories"
	"workitem-system/internal/services"
	"workitem-system/pkg/config"
	apperrors "workitem-system/pkg/errors"
)

var nonDigits = regexp.MustCompile(`\D`)

// Client resolves company data from the public CNPJ registry. Lookups are
// cached; every failure is an ExternalDependencyError the caller must treat
// as non-fatal.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      repositories.CacheRepositoryInterface
	cacheTTL   time.Duration
	logger     *zap.Logger
}

func NewClient(cfg config.RegistryConfig, cache repositories.CacheRepositoryInterface, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		cache:      cache,
		cacheTTL:   cfg.CacheTTL,
		logger:     logger,
	}
}

type registryPayload struct {
	RazaoSocial  string `json:"razao_social"`
	NomeFantasia string `json:"nome_fantasia"`
	Municipio    string `json:"municipio"`
	UF           string `json:"uf"`
}

func (c *Client) Lookup(ctx context.Context, cnpj string) (*services.CompanyInfo, error) {
	digits := nonDigits.ReplaceAllString(cnpj, "")
	if len(digits) != 14 {
		return nil, apperrors.NewValidationError("cnpj must have 14 digits")
	}

	cacheKey := "registry:cnpj:" + digits
	if c.cache != nil {
		if raw, ok, err := c.cache.Get(ctx, cacheKey); err == nil && ok {
			var payload registryPayload
			if err := json.Unmarshal(raw, &payload); err == nil {
				return payload.toInfo(), nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s", c.baseURL, digits), nil)
	if err != nil {
		return nil, apperrors.NewExternalDependencyError("build registry request: %v", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalDependencyError("registry lookup: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewNotFoundError("cnpj %s not found in registry", digits)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewExternalDependencyError("registry returned %d", resp.StatusCode)
	}

	var payload registryPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.NewExternalDependencyError("decode registry response: %v", err)
	}

	if c.cache != nil {
		if raw, err := json.Marshal(payload); err == nil {
			if err := c.cache.Set(ctx, cacheKey, raw, c.cacheTTL); err != nil {
				c.logger.Warn("registry cache write failed", zap.Error(err))
			}
		}
	}
	return payload.toInfo(), nil
}

func (p registryPayload) toInfo() *services.CompanyInfo {
	return &services.CompanyInfo{
		LegalName: p.RazaoSocial,
		TradeName: p.NomeFantasia,
		City:      p.Municipio,
		State:     p.UF,
	}
}
