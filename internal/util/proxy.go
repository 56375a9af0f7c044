// Package util holds small helpers shared by network clients.
package util

import (
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// ProxyFunc returns the proxy selector for an http.Transport. Explicit
// proxies win over HTTP_PROXY and HTTPS_PROXY; an explicit HTTP proxy also
// serves https requests when no HTTPS proxy is given. NO_PROXY from the
// environment always applies.
func ProxyFunc(httpProxy, httpsProxy string) (func(*http.Request) (*url.URL, error), error) {
	if _, err := parseProxy(httpProxy); err != nil {
		return nil, err
	}
	if _, err := parseProxy(httpsProxy); err != nil {
		return nil, err
	}

	conf := httpproxy.FromEnvironment()
	if httpProxy != "" {
		conf.HTTPProxy = httpProxy
		conf.HTTPSProxy = httpProxy
	}
	if httpsProxy != "" {
		conf.HTTPSProxy = httpsProxy
	}
	proxyFor := conf.ProxyFunc()

	return func(req *http.Request) (*url.URL, error) {
		return proxyFor(req.URL)
	}, nil
}

func parseProxy(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy %q: scheme and host required", raw)
	}
	return u, nil
}
