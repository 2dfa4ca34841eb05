// Package email composes the follow-up messages sent after a visit is
// completed. Each message carries one link per decision; opening a link
// records that decision.
package email

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/evcraddock/nb/internal/visit"
)

// DefaultLinkBase is where decision links point when none is configured.
const DefaultLinkBase = "https://nobroker.example/visits"

// Message is a composed plain-text email.
type Message struct {
	To      string // recipient user id
	Role    visit.Role
	Subject string
	Body    string
	Links   map[visit.Decision]string
}

// DecisionLink builds the link that records decision for the visit.
func DecisionLink(base, visitID string, decision visit.Decision) string {
	if base == "" {
		base = DefaultLinkBase
	}
	q := url.Values{}
	q.Set("visitId", visitID)
	q.Set("action", string(decision))

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

// FollowUp composes the message asking role for a decision on v.
// ownerID addresses the owner's copy; tenants are addressed by v.TenantID.
func FollowUp(v *visit.Visit, role visit.Role, ownerID, linkBase string) (Message, error) {
	if v.Status != visit.Completed {
		return Message{}, fmt.Errorf("visit %s is %s, not completed", v.ID, v.Status)
	}

	msg := Message{Role: role, Links: map[visit.Decision]string{}}
	switch role {
	case visit.Tenant:
		msg.To = v.TenantID
	case visit.Owner:
		msg.To = ownerID
	default:
		return Message{}, fmt.Errorf("no follow-up for role %s", role)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Hi,\n\nThe visit to listing %s", v.ListingID)
	if when, err := v.ScheduledAt(); err == nil {
		fmt.Fprintf(&buf, " on %s", when.UTC().Format("Mon 2 Jan 2006 15:04 MST"))
	}
	fmt.Fprintf(&buf, " is complete.\n")

	if role == visit.Tenant {
		fmt.Fprintf(&buf, "Would you like to rent this place?\n\n")
	} else {
		fmt.Fprintf(&buf, "Would you like to rent to this tenant?\n\n")
	}

	for _, d := range []visit.Decision{visit.Interested, visit.NotInterested, visit.Undecided} {
		link := DecisionLink(linkBase, v.ID, d)
		msg.Links[d] = link
		fmt.Fprintf(&buf, "  %s:\n  %s\n\n", d.Label(), link)
	}

	fmt.Fprintf(&buf, "If both of you are interested, we will put you in touch.\n\nThanks!\n")

	msg.Subject = fmt.Sprintf("How was your visit to %s?", v.ListingID)
	msg.Body = buf.String()
	return msg, nil
}
