// Package catalog resolves a package id into a download plan with the
// details, purchase and delivery calls.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/glorpus-work/apkfetch/pkg/auth"
	"github.com/glorpus-work/apkfetch/pkg/device"
	apkhttp "github.com/glorpus-work/apkfetch/pkg/http"
	"github.com/glorpus-work/apkfetch/pkg/logger"
	"github.com/glorpus-work/apkfetch/pkg/model"
	"github.com/glorpus-work/apkfetch/pkg/wire"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the catalog API root.
const DefaultBaseURL = "https://android.clients.google.com/fdfe"

// Client talks to the details, purchase and delivery endpoints.
type Client struct {
	baseURL string
	http    apkhttp.Doer
}

// NewClient creates a catalog client rooted at baseURL.
func NewClient(baseURL string, doer apkhttp.Doer) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: doer}
}

// Resolve performs the three calls in order. Every failure is a *model.Failure.
func (c *Client) Resolve(ctx context.Context, pkg string, cred *auth.Credential, region device.Region) (*model.DownloadPlan, error) {
	session := auth.NewSession(cred, region.Language)

	details, err := c.details(ctx, pkg, session)
	if err != nil {
		return nil, err
	}

	c.purchase(ctx, pkg, details.VersionCode, session)

	delivery, err := c.delivery(ctx, pkg, details.VersionCode, session)
	if err != nil {
		return nil, err
	}

	plan := &model.DownloadPlan{
		Package:       pkg,
		Title:         details.Title,
		VersionCode:   details.VersionCode,
		VersionString: details.VersionString,
		Primary: model.ArtifactDescriptor{
			Name: "base",
			URL:  delivery.DownloadURL,
			Size: delivery.DownloadSize,
		},
		Secondaries: []model.ArtifactDescriptor{},
		Cookies:     []model.Cookie{},
	}
	for i, s := range delivery.Splits {
		if s.DownloadURL == "" {
			continue
		}
		name := s.Name
		if name == "" {
			name = "split" + strconv.Itoa(i)
		}
		plan.Secondaries = append(plan.Secondaries, model.ArtifactDescriptor{Name: name, URL: s.DownloadURL, Size: s.DownloadSize})
	}
	for _, ck := range delivery.Cookies {
		plan.Cookies = append(plan.Cookies, model.Cookie{Name: ck.Name, Value: ck.Value})
	}
	return plan, nil
}

func (c *Client) details(ctx context.Context, pkg string, session *auth.Session) (*wire.Details, error) {
	q := url.Values{"doc": {pkg}}
	body, err := c.get(ctx, "details", q, session)
	if err != nil {
		return nil, err
	}

	d, err := wire.DecodeDetails(body)
	if err != nil {
		return nil, model.WrapFailure(model.KindProtocol, "details", err)
	}
	if d.DocID == "" {
		detail := "no document (check region)"
		if d.ServerMessage != "" {
			detail = d.ServerMessage
		}
		return nil, model.NewFailure(model.KindNotFound, detail)
	}
	if d.VersionCode == 0 {
		return nil, model.NewFailure(model.KindRegionRestricted, "version code is zero")
	}
	return d, nil
}

// purchase registers a free entitlement. Its outcome is never inspected.
func (c *Client) purchase(ctx context.Context, pkg string, vc int64, session *auth.Session) {
	form := url.Values{}
	form.Set("doc", pkg)
	form.Set("ot", "1")
	form.Set("vc", strconv.FormatInt(vc, 10))

	resp, err := c.http.Do(ctx, http.MethodPost, c.baseURL+"/purchase", strings.NewReader(form.Encode()), session.FormAuthenticator())
	fields := logrus.Fields{"package": pkg, "version_code": vc}
	switch {
	case err != nil:
		fields["error"] = err
		logger.Debug("Purchase call failed", fields)
	case !resp.OK():
		fields["status"] = resp.StatusCode
		logger.Debug("Purchase call rejected", fields)
	}
}

func (c *Client) delivery(ctx context.Context, pkg string, vc int64, session *auth.Session) (*wire.Delivery, error) {
	q := url.Values{"doc": {pkg}, "ot": {"1"}, "vc": {strconv.FormatInt(vc, 10)}}
	body, err := c.get(ctx, "delivery", q, session)
	if err != nil {
		return nil, err
	}

	d, err := wire.DecodeDelivery(body)
	if err != nil {
		return nil, model.WrapFailure(model.KindProtocol, "delivery", err)
	}
	if d.DownloadURL == "" {
		detail := "no download url (app may be paid or restricted)"
		if d.ServerMessage != "" {
			detail += ": " + d.ServerMessage
		}
		return nil, model.NewFailure(model.KindProtocol, detail)
	}
	return d, nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, session *auth.Session) ([]byte, error) {
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, q.Encode())
	resp, err := c.http.Do(ctx, http.MethodGet, u, nil, session)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, model.WrapFailure(model.KindCancelled, endpoint, err)
		}
		return nil, model.WrapFailure(model.KindNetwork, endpoint, err)
	}
	return resp.Body, classifyStatus(endpoint, resp.StatusCode)
}

func classifyStatus(endpoint string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return model.NewFailure(model.KindNotFound, fmt.Sprintf("%s: status %d", endpoint, status))
	case status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout:
		return model.NewFailure(model.KindNetwork, fmt.Sprintf("%s: status %d", endpoint, status))
	default:
		return model.NewFailure(model.KindProtocol, fmt.Sprintf("%s: status %d", endpoint, status))
	}
}
