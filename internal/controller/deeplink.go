package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/evcraddock/nb/internal/store"
	"github.com/evcraddock/nb/internal/visit"
)

// ErrDeepLinkHandled is returned when a controller has already acted on
// its deep link.
var ErrDeepLinkHandled = errors.New("deep link already handled")

// DeepLink is the decision entry point sent in notification emails:
// ?visitId=<id>&action=<decision>.
type DeepLink struct {
	VisitID string
	Action  visit.Decision
}

// ParseDeepLink reads visitId and action from a full URL or a bare query
// string. ok is false when neither parameter is present.
func ParseDeepLink(raw string) (link DeepLink, ok bool, err error) {
	raw = strings.TrimSpace(raw)
	query := raw
	if i := strings.Index(raw, "?"); i >= 0 {
		query = raw[i+1:]
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return DeepLink{}, false, fmt.Errorf("parsing deep link: %w", err)
	}

	id := strings.TrimSpace(values.Get("visitId"))
	action := strings.TrimSpace(values.Get("action"))
	if id == "" && action == "" {
		return DeepLink{}, false, nil
	}
	if id == "" {
		return DeepLink{}, true, &store.ValidationError{Field: "visitId", Message: "is required"}
	}

	d, err := visit.ParseDecision(action)
	if err != nil {
		return DeepLink{}, true, &store.ValidationError{Field: "action", Message: err.Error()}
	}
	return DeepLink{VisitID: id, Action: d}, true, nil
}

// HandleDeepLink submits the decision carried by raw. It acts at most
// once per controller; later calls return ErrDeepLinkHandled. A link with
// no parameters is not an error and returns (nil, nil).
func (c *Controller) HandleDeepLink(ctx context.Context, raw string) (*visit.Visit, error) {
	link, ok, err := ParseDeepLink(raw)
	if !ok && err == nil {
		return nil, nil
	}

	c.mu.Lock()
	if c.linkDone {
		c.mu.Unlock()
		return nil, ErrDeepLinkHandled
	}
	c.linkDone = true
	c.mu.Unlock()

	if err != nil {
		c.setBanner(err)
		return nil, err
	}

	slog.Info("handling deep link", "visit_id", link.VisitID, "action", link.Action)
	v, err := c.store.SubmitDecision(ctx, link.VisitID, link.Action, "")
	if err != nil {
		c.setBanner(err)
		return nil, err
	}
	c.clearBanner()
	return v, nil
}
