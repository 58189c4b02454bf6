package pushover

import (
	"context"
	"strings"

	"github.com/noahxzhu/widget-dashboard/internal/credentials"
	"github.com/noahxzhu/widget-dashboard/internal/model"
	"github.com/noahxzhu/widget-dashboard/internal/notify"
)

// Service is the credential service name the alerter looks up. It expects
// one credential named "token" (the application token) and one named "user"
// (the user key).
const Service = "pushover"

// Alerter delivers desktop alerts as Pushover messages. It is unsupported
// until both credentials exist.
type Alerter struct {
	client *Client
	creds  credentials.Lookup
	title  string
}

func NewAlerter(client *Client, creds credentials.Lookup, title string) *Alerter {
	return &Alerter{client: client, creds: creds, title: title}
}

func (a *Alerter) keys() (token, user string, ok bool) {
	for _, c := range a.creds.ListByService(Service) {
		switch strings.ToLower(c.Name) {
		case "token":
			if token == "" {
				token, _ = a.creds.ResolveSecret(c.ID)
			}
		case "user":
			if user == "" {
				user, _ = a.creds.ResolveSecret(c.ID)
			}
		}
	}
	return token, user, token != "" && user != ""
}

func (a *Alerter) Permission() notify.Permission {
	if _, _, ok := a.keys(); !ok {
		return notify.PermissionUnsupported
	}
	return notify.PermissionGranted
}

func (a *Alerter) RequestPermission(context.Context) notify.Permission {
	return a.Permission()
}

func (a *Alerter) Show(ctx context.Context, n model.ActiveNotification) error {
	token, user, ok := a.keys()
	if !ok {
		return nil
	}
	return a.client.SendMessage(ctx, Message{
		Token:    token,
		User:     user,
		Title:    a.title,
		Message:  n.Message,
		Priority: priority(n.Severity),
	})
}

// priority maps severities onto Pushover priorities (-1 quiet, 0 normal,
// 1 high).
func priority(s model.Severity) int {
	switch s {
	case model.SeverityInfo:
		return -1
	case model.SeverityError:
		return 1
	default:
		return 0
	}
}
