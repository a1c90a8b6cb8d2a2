package buildservice

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"git.home.luguber.info/inful/rebuildcheck/internal/foundation/errors"
	"git.home.luguber.info/inful/rebuildcheck/internal/logfields"
	"git.home.luguber.info/inful/rebuildcheck/internal/metrics"
	"git.home.luguber.info/inful/rebuildcheck/internal/model"
	"git.home.luguber.info/inful/rebuildcheck/internal/retry"
	"git.home.luguber.info/inful/rebuildcheck/internal/version"
)

// Options configures an OBS client.
type Options struct {
	APIURL   string
	Username string
	Password string
	Token    string
	Timeout  time.Duration
	Retry    retry.Policy
	Recorder metrics.Recorder
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// OBSClient talks to the Open Build Service REST API.
type OBSClient struct {
	httpClient *http.Client
	apiURL     string
	username   string
	password   string
	token      string
	retry      retry.Policy
	recorder   metrics.Recorder
}

var _ Service = (*OBSClient)(nil)

// NewOBSClient creates an OBS client. Session cookies returned by the server
// are kept in a jar so that credentials are not re-validated on every call.
func NewOBSClient(opts Options) (*OBSClient, error) {
	if _, err := url.ParseRequestURI(opts.APIURL); err != nil {
		return nil, errors.ConfigError("invalid API URL").
			WithCause(err).
			WithContext("api_url", opts.APIURL).
			Build()
	}
	hc := opts.HTTPClient
	if hc == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, errors.InternalError("failed to create cookie jar").WithCause(err).Build()
		}
		hc = &http.Client{Timeout: opts.Timeout, Jar: jar}
	}
	policy := opts.Retry
	if policy.Validate() != nil {
		policy = retry.DefaultPolicy()
	}
	return &OBSClient{
		httpClient: hc,
		apiURL:     strings.TrimSuffix(opts.APIURL, "/"),
		username:   opts.Username,
		password:   opts.Password,
		token:      opts.Token,
		retry:      policy,
		recorder:   metrics.OrNoop(opts.Recorder),
	}, nil
}

// GetProjectMeta implements Service.
func (c *OBSClient) GetProjectMeta(ctx context.Context, project string) (*model.Project, error) {
	var meta projectMeta
	if err := c.call(ctx, http.MethodGet, endpoint(nil, "source", project, "_meta"), nil, &meta); err != nil {
		if errors.HasCategory(err, errors.CategoryNotFound) {
			return nil, ErrProjectNotFound.WithContext("project", project).WithCause(err)
		}
		return nil, err
	}
	if meta.Name == "" {
		meta.Name = project
	}
	return meta.toModel(), nil
}

// GetPackages implements Service.
func (c *OBSClient) GetPackages(ctx context.Context, project string) ([]model.Package, error) {
	var dir directory
	if err := c.call(ctx, http.MethodGet, endpoint(nil, "source", project), nil, &dir); err != nil {
		if errors.HasCategory(err, errors.CategoryNotFound) {
			return nil, ErrProjectNotFound.WithContext("project", project).WithCause(err)
		}
		return nil, err
	}
	pkgs := make([]model.Package, 0, len(dir.Entries))
	for _, e := range dir.Entries {
		pkgs = append(pkgs, model.Package{Project: project, Name: e.Name})
	}
	return pkgs, nil
}

// CreateOrGetProject implements Service.
func (c *OBSClient) CreateOrGetProject(ctx context.Context, name, title, description string, repos []model.Repository) (*model.Environment, error) {
	existing, err := c.GetProjectMeta(ctx, name)
	switch {
	case err == nil:
		return &model.Environment{
			Name:         existing.Name,
			Title:        existing.Title,
			Description:  existing.Description,
			Adopted:      true,
			Repositories: existing.Repositories,
		}, nil
	case !errors.HasCategory(err, errors.CategoryNotFound):
		return nil, err
	}

	meta := newProjectMeta(name, title, description, repos)
	if err := c.call(ctx, http.MethodPut, endpoint(nil, "source", name, "_meta"), meta, nil); err != nil {
		return nil, err
	}
	slog.Info("Created rebuild environment", logfields.Environment(name))
	return &model.Environment{
		Name:         name,
		Title:        title,
		Description:  description,
		Repositories: repos,
	}, nil
}

// LinkPackage implements Service. The package container is created first,
// then its _link is written; both calls overwrite earlier content.
func (c *OBSClient) LinkPackage(ctx context.Context, pkg model.Package, env *model.Environment) error {
	meta := packageMeta{Name: pkg.Name, Project: env.Name, Title: pkg.Name}
	if err := c.call(ctx, http.MethodPut, endpoint(nil, "source", env.Name, pkg.Name, "_meta"), meta, nil); err != nil {
		return err
	}
	link := linkMeta{Project: pkg.Project, Package: pkg.Name}
	return c.call(ctx, http.MethodPut, endpoint(nil, "source", env.Name, pkg.Name, "_link"), link, nil)
}

// GetBuildStatus implements Service.
func (c *OBSClient) GetBuildStatus(ctx context.Context, pkg model.Package, env *model.Environment) (model.BuildState, error) {
	var res resultList
	q := url.Values{"package": []string{pkg.Name}}
	if err := c.call(ctx, http.MethodGet, endpoint(q, "build", env.Name, "_result"), nil, &res); err != nil {
		return "", err
	}
	return Aggregate(res.states(pkg.Name)), nil
}

// GetDependencies implements Service.
func (c *OBSClient) GetDependencies(ctx context.Context, project, repository, arch string) ([]DepInfo, error) {
	var info buildDepInfo
	if err := c.call(ctx, http.MethodGet, endpoint(nil, "build", project, repository, arch, "_builddepinfo"), nil, &info); err != nil {
		return nil, err
	}
	out := make([]DepInfo, 0, len(info.Packages))
	for _, p := range info.Packages {
		out = append(out, DepInfo{Name: p.Name, Deps: p.PkgDeps})
	}
	return out, nil
}

// DeleteProject implements Service.
func (c *OBSClient) DeleteProject(ctx context.Context, project string) error {
	return c.call(ctx, http.MethodDelete, endpoint(nil, "source", project), nil, nil)
}

// call issues one request through the retry policy.
func (c *OBSClient) call(ctx context.Context, method, ep string, body, result any) error {
	return c.retry.Do(ctx, func(ctx context.Context) error {
		req, err := c.NewRequest(ctx, method, ep, body)
		if err != nil {
			return err
		}
		start := time.Now()
		err = c.DoRequest(req, result)
		c.recorder.ObserveRequestDuration(method, time.Since(start), err == nil)
		if err != nil && errors.IsRetryable(err) {
			slog.Debug("Retrying Build Service request",
				slog.String("method", method),
				logfields.URL(req.URL.String()),
				logfields.Error(err))
		}
		return err
	})
}

// NewRequest creates an authenticated request against the API. Endpoint is
// a path relative to the API URL, optionally with a query string.
func (c *OBSClient) NewRequest(ctx context.Context, method, ep string, body any) (*http.Request, error) {
	cleanEndpoint := strings.TrimPrefix(ep, "/")

	var rawQuery string
	if idx := strings.Index(cleanEndpoint, "?"); idx != -1 {
		rawQuery = cleanEndpoint[idx+1:]
		cleanEndpoint = cleanEndpoint[:idx]
	}

	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, errors.BuildServiceError("failed to parse API URL").
			WithCause(err).
			WithContext("api_url", c.apiURL).
			Build()
	}
	u.Path = path.Join(strings.TrimSuffix(u.Path, "/"), cleanEndpoint)
	u.RawQuery = rawQuery

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := xml.Marshal(body)
		if err != nil {
			return nil, errors.BuildServiceError("failed to marshal request body").
				WithCause(err).
				Build()
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, errors.BuildServiceError("failed to create request").
			WithCause(err).
			WithContext("method", method).
			WithContext("url", u.String()).
			Build()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/xml")
	}
	req.Header.Set("Accept", "application/xml")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", "rebuildcheck/"+version.Version)

	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Token "+c.token)
	case c.username != "":
		req.SetBasicAuth(c.username, c.password)
	}
	return req, nil
}

// DoRequest executes req and decodes an XML response into result when non-nil.
func (c *OBSClient) DoRequest(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NetworkError("failed to execute Build Service request").
			WithCause(err).
			WithContext("method", req.Method).
			WithContext("url", req.URL.String()).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		limitedBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return statusError(req, resp, strings.ReplaceAll(string(limitedBody), "\n", " "))
	}

	if result != nil {
		if err := xml.NewDecoder(resp.Body).Decode(result); err != nil {
			return errors.BuildServiceError("failed to decode response").
				WithCause(err).
				WithContext("url", req.URL.String()).
				Build()
		}
	}
	return nil
}

func statusError(req *http.Request, resp *http.Response, body string) error {
	var b *errors.ErrorBuilder
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrAuthRequired.WithContextMap(errors.ErrorContext{
			"url":    req.URL.String(),
			"status": resp.Status,
		})
	case resp.StatusCode == http.StatusForbidden:
		return ErrPermissionDenied.WithContextMap(errors.ErrorContext{
			"url":      req.URL.String(),
			"status":   resp.Status,
			"response": body,
		})
	case resp.StatusCode == http.StatusNotFound:
		b = errors.NotFoundError("Build Service resource not found").WithSeverity(errors.SeverityError)
	case resp.StatusCode == http.StatusTooManyRequests:
		b = errors.NetworkError(fmt.Sprintf("Build Service API error: %s", resp.Status)).RateLimit()
	case resp.StatusCode >= 500:
		b = errors.NetworkError(fmt.Sprintf("Build Service API error: %s", resp.Status))
	default:
		b = errors.BuildServiceError(fmt.Sprintf("Build Service API error: %s", resp.Status))
	}
	return b.WithContext("status", resp.Status).
		WithContext("code", resp.StatusCode).
		WithContext("url", req.URL.String()).
		WithContext("response", body).
		Build()
}

// endpoint joins path segments and an optional query.
func endpoint(q url.Values, segments ...string) string {
	ep := "/" + strings.Join(segments, "/")
	if len(q) > 0 {
		ep += "?" + q.Encode()
	}
	return ep
}
