// Package balancer spreads API traffic over the Framez instances found
// behind one DNS name. Only instances whose status endpoint answers 200,
// meaning their feed mirror is live, receive requests.
package balancer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"time"

	"github.com/theleywin/Framez-Backend/src/lib"
)

// Resolver looks up the addresses behind a service name.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Endpoint is one discovered API instance.
type Endpoint struct {
	Addr      string
	URL       *url.URL
	Healthy   bool
	LastCheck time.Time

	proxy *httputil.ReverseProxy
}

type Config struct {
	ServiceName    string
	ServicePort    string
	HealthPath     string
	UpdateInterval time.Duration
	HealthInterval time.Duration
	HealthTimeout  time.Duration
}

type Pool struct {
	cfg      Config
	resolver Resolver
	client   *http.Client

	mu        sync.RWMutex
	endpoints []*Endpoint
	next      int
}

func NewPool(cfg Config, resolver Resolver) *Pool {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 3 * time.Second
	}
	return &Pool{
		cfg:      cfg,
		resolver: resolver,
		client:   &http.Client{Timeout: cfg.HealthTimeout},
	}
}

// Start runs one discovery and health pass, then keeps both going until ctx
// is done.
func (p *Pool) Start(ctx context.Context) {
	p.Discover(ctx)
	p.CheckAll(ctx)

	go p.every(ctx, p.cfg.UpdateInterval, p.Discover)
	go p.every(ctx, p.cfg.HealthInterval, p.CheckAll)
}

func (p *Pool) every(ctx context.Context, d time.Duration, fn func(context.Context)) {
	if d <= 0 {
		return
	}
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// Discover syncs the endpoint list with DNS. Known endpoints keep their
// health state; new ones start unhealthy until checked.
func (p *Pool) Discover(ctx context.Context) {
	addrs, err := p.resolver.LookupHost(ctx, p.cfg.ServiceName)
	if err != nil {
		lib.LogJSON("warn", "service lookup failed", map[string]interface{}{
			"service": p.cfg.ServiceName,
			"error":   err.Error(),
		})
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	known := make(map[string]*Endpoint, len(p.endpoints))
	for _, ep := range p.endpoints {
		known[ep.Addr] = ep
	}

	endpoints := make([]*Endpoint, 0, len(addrs))
	for _, addr := range addrs {
		if ep, ok := known[addr]; ok {
			endpoints = append(endpoints, ep)
			delete(known, addr)
			continue
		}
		target := &url.URL{Scheme: "http", Host: net.JoinHostPort(addr, p.cfg.ServicePort)}
		endpoints = append(endpoints, newEndpoint(addr, target))
		lib.LogJSON("info", "instance discovered", map[string]interface{}{"url": target.String()})
	}
	for addr := range known {
		lib.LogJSON("info", "instance removed", map[string]interface{}{"addr": addr})
	}
	p.endpoints = endpoints
}

func newEndpoint(addr string, target *url.URL) *Endpoint {
	proxy := httputil.NewSingleHostReverseProxy(target)
	// Feed streams are server-sent events and must not sit in a buffer.
	proxy.FlushInterval = -1
	return &Endpoint{Addr: addr, URL: target, proxy: proxy}
}

// CheckAll probes every endpoint's health path concurrently.
func (p *Pool) CheckAll(ctx context.Context) {
	p.mu.RLock()
	endpoints := append([]*Endpoint(nil), p.endpoints...)
	p.mu.RUnlock()

	results := make([]bool, len(endpoints))
	var wg sync.WaitGroup
	for i, ep := range endpoints {
		wg.Add(1)
		go func(i int, ep *Endpoint) {
			defer wg.Done()
			results[i] = p.probe(ctx, ep)
		}(i, ep)
	}
	wg.Wait()

	now := time.Now()
	healthy := 0
	p.mu.Lock()
	for i, ep := range endpoints {
		if ep.Healthy != results[i] {
			lib.LogJSON("info", "instance health changed", map[string]interface{}{
				"url":     ep.URL.String(),
				"healthy": results[i],
			})
		}
		ep.Healthy = results[i]
		ep.LastCheck = now
		if ep.Healthy {
			healthy++
		}
	}
	p.mu.Unlock()

	lib.LogJSON("debug", "health check done", map[string]interface{}{
		"healthy": healthy,
		"total":   len(endpoints),
	})
}

func (p *Pool) probe(ctx context.Context, ep *Endpoint) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL.String()+p.cfg.HealthPath, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Next picks the next healthy endpoint round robin, or nil when none is.
func (p *Pool) Next() *Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	healthy := make([]*Endpoint, 0, len(p.endpoints))
	for _, ep := range p.endpoints {
		if ep.Healthy {
			healthy = append(healthy, ep)
		}
	}
	if len(healthy) == 0 {
		return nil
	}
	ep := healthy[p.next%len(healthy)]
	p.next++
	return ep
}

type Status struct {
	Service   string           `json:"service"`
	Total     int              `json:"total"`
	Healthy   int              `json:"healthy"`
	Endpoints []EndpointStatus `json:"endpoints"`
}

type EndpointStatus struct {
	URL       string    `json:"url"`
	Healthy   bool      `json:"healthy"`
	LastCheck time.Time `json:"lastCheck"`
}

func (p *Pool) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	st := Status{Service: p.cfg.ServiceName, Total: len(p.endpoints), Endpoints: []EndpointStatus{}}
	for _, ep := range p.endpoints {
		if ep.Healthy {
			st.Healthy++
		}
		st.Endpoints = append(st.Endpoints, EndpointStatus{URL: ep.URL.String(), Healthy: ep.Healthy, LastCheck: ep.LastCheck})
	}
	return st
}

// ServeHTTP forwards the request to the next healthy instance.
func (p *Pool) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ep := p.Next()
	if ep == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"message": fmt.Sprintf("no healthy %s instance", p.cfg.ServiceName),
		})
		return
	}

	r.Header.Set("X-Forwarded-Host", r.Host)
	ep.proxy.ServeHTTP(w, r)
}
