package factory

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/utcpbridge/bridge"
	"github.com/effective-security/utcpbridge/catalog"
	"github.com/effective-security/utcpbridge/client"
	"github.com/effective-security/utcpbridge/client/httpcall"
	"github.com/effective-security/utcpbridge/localtool"
	"github.com/effective-security/utcpbridge/localtool/tavily"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/utcpbridge", "factory")

// NewSearcher is a wrapper for tavily.New to allow for overriding the default implementation.
var NewSearcher = tavily.New

// Factory creates the catalog, the backing client and the bridged tools
// described by the configuration.
type Factory struct {
	cfg        *Config
	vars       *catalog.Variables
	httpClient *http.Client
	cacheTTL   time.Duration

	cache   catalog.Cache
	repo    *catalog.Repository
	router  *client.Router
	toolbox *localtool.Toolbox
	lock    sync.Mutex
}

// Load returns the factory for the config file
func Load(location string) (*Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// New creates a new factory
func New(cfg *Config) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout, _ := parseDuration(cfg.HTTP.Timeout, DefaultHTTPTimeout)
	ttl, _ := parseDuration(cfg.Cache.TTL, DefaultCacheTTL)

	return &Factory{
		cfg:        cfg,
		vars:       catalog.NewVariables(cfg.Variables),
		httpClient: &http.Client{Timeout: timeout},
		cacheTTL:   ttl,
	}, nil
}

// Config returns the configuration
func (f *Factory) Config() *Config {
	return f.cfg
}

// Cache returns the manual cache, or nil if caching is disabled
func (f *Factory) Cache() (catalog.Cache, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.getCache()
}

func (f *Factory) getCache() (catalog.Cache, error) {
	if f.cache != nil {
		return f.cache, nil
	}

	switch provider := strings.ToLower(f.cfg.Cache.Provider); provider {
	case "", CacheNone:
		return nil, nil
	case CacheMemory:
		f.cache = catalog.NewMemoryCache()
	case CacheRedis:
		opts, err := redis.ParseURL(f.cfg.Cache.RedisURL)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid redis_url")
		}
		f.cache = catalog.NewRedisCache(redis.NewClient(opts))
	default:
		return nil, errors.Errorf("unsupported cache provider: %s", provider)
	}

	logger.KV(xlog.DEBUG,
		"status", "created_cache",
		"provider", f.cfg.Cache.Provider,
		"ttl", f.cacheTTL)
	return f.cache, nil
}

// Repository returns the catalog with every configured manual registered.
// The manuals are loaded on first use.
func (f *Factory) Repository() (*catalog.Repository, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.getRepository()
}

func (f *Factory) getRepository() (*catalog.Repository, error) {
	if f.repo != nil {
		return f.repo, nil
	}

	cache, err := f.getCache()
	if err != nil {
		return nil, err
	}
	prefix := values.StringsCoalesce(f.cfg.Cache.Prefix, DefaultCachePrefix)

	repo := catalog.NewRepository()
	for _, mc := range f.cfg.Manuals {
		var src catalog.Source
		switch mc.Type {
		case catalog.TemplateHTTP:
			src = catalog.NewHTTPSource(mc.Name, &catalog.CallTemplate{
				Type:       catalog.TemplateHTTP,
				Name:       mc.Name,
				URL:        mc.URL,
				HTTPMethod: mc.HTTPMethod,
				Headers:    mc.Headers,
				Auth:       mc.Auth,
			}, f.vars, f.httpClient)
		case catalog.TemplateFile:
			src = catalog.NewFileSource(mc.File)
		default:
			return nil, errors.Errorf("manual %s: unsupported type: %s", mc.Name, mc.Type)
		}

		if cache != nil {
			src = catalog.NewCachedSource(mc.Name, prefix, src, cache, f.cacheTTL)
		}
		if err = repo.Add(mc.Name, src, mc.CallTemplate); err != nil {
			return nil, err
		}
	}

	tb, err := f.getToolbox()
	if err != nil {
		return nil, err
	}
	if tb != nil {
		if err = repo.Add(tb.Name(), tb, tb.CallTemplate()); err != nil {
			return nil, err
		}
	}

	f.repo = repo
	return repo, nil
}

// getToolbox returns nil when no local tools are enabled
func (f *Factory) getToolbox() (*localtool.Toolbox, error) {
	if f.toolbox != nil || !f.cfg.LocalTools.WebSearch {
		return f.toolbox, nil
	}

	tb := localtool.New(localtool.DefaultManualName)
	searcher, err := NewSearcher()
	if err != nil {
		return nil, errors.WithMessage(err, "local_tools.web_search")
	}
	if err = searcher.WithHTTPClient(f.httpClient).Register(tb); err != nil {
		return nil, err
	}
	f.toolbox = tb
	return tb, nil
}

// Client returns the router dispatching calls to the transports
// by the call template type.
func (f *Factory) Client() (client.Client, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.getRouter()
}

func (f *Factory) getRouter() (*client.Router, error) {
	if f.router != nil {
		return f.router, nil
	}

	repo, err := f.getRepository()
	if err != nil {
		return nil, err
	}

	router := client.NewRouter(repo).
		Register(catalog.TemplateHTTP, httpcall.New(f.httpClient, f.vars))
	if f.toolbox != nil {
		router.Register(catalog.TemplateLocal, f.toolbox)
	}

	logger.KV(xlog.DEBUG,
		"status", "created_client",
		"templates", router.TemplateTypes())

	f.router = router
	return router, nil
}

// Toolset loads the catalog and returns the bridged tools
func (f *Factory) Toolset(ctx context.Context, opts ...bridge.Option) (*bridge.Toolset, error) {
	f.lock.Lock()
	router, err := f.getRouter()
	repo := f.repo
	f.lock.Unlock()
	if err != nil {
		return nil, err
	}

	if f.cfg.Bridge.NamePrefix != "" {
		opts = append([]bridge.Option{bridge.WithNamePrefix(f.cfg.Bridge.NamePrefix)}, opts...)
	}

	list, err := bridge.FromProvider(ctx, repo, router, opts...)
	if err != nil {
		return nil, err
	}
	return bridge.NewToolset(list...)
}
